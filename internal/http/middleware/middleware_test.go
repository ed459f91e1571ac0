package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/http/middleware"
	"github.com/marutilai/open-deep-research/internal/observability"
)

func tag(name string, order *[]string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	handler := middleware.Chain(tag("first", &order), tag("second", &order))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestTrace(t *testing.T) {
	t.Run("should inject IDs into context and headers", func(t *testing.T) {
		var requestID, traceID string
		handler := middleware.Trace()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID = observability.GetRequestID(r.Context())
			traceID = observability.GetTraceID(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)
		require.Len(t, traceID, 32)
		require.Equal(t, traceID, rec.Header().Get("X-Trace-Id"))
		require.Equal(t, requestID, rec.Header().Get("X-Request-Id"))
	})

	t.Run("should keep an incoming request ID", func(t *testing.T) {
		handler := middleware.Trace()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "req-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	})
}

func TestCORS(t *testing.T) {
	t.Run("should answer preflight requests", func(t *testing.T) {
		handler := middleware.CORS(&config.CORSConfig{
			AllowedOrigins: []string{"https://viewer.example"},
		})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		req := httptest.NewRequest(http.MethodOptions, "/v1/companies", nil)
		req.Header.Set("Origin", "https://viewer.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "https://viewer.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should pass through without config", func(t *testing.T) {
		called := false
		handler := middleware.CORS(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.True(t, called)
	})
}

func TestMetrics(t *testing.T) {
	t.Run("should count requests by route and status", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := middleware.NewMetrics(reg)

		mux := http.NewServeMux()
		mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		handler := metrics.Middleware()(mux)

		for _, path := range []string{"/items/1", "/items/2", "/nope"} {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}

		count, err := testutil.GatherAndCount(reg, "viewer_http_requests_total")
		require.NoError(t, err)
		require.Equal(t, 2, count)

		families, err := reg.Gather()
		require.NoError(t, err)

		values := map[string]float64{}
		for _, family := range families {
			if family.GetName() != "viewer_http_requests_total" {
				continue
			}
			for _, m := range family.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				values[labels["route"]+" "+labels["status"]] = m.GetCounter().GetValue()
			}
		}

		require.InDelta(t, 2.0, values["GET /items/{id} 204"], 1e-9)
		require.InDelta(t, 1.0, values["unmatched 404"], 1e-9)
	})

	t.Run("should be a no-op when nil", func(t *testing.T) {
		var metrics *middleware.Metrics
		called := false
		handler := metrics.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.True(t, called)
	})
}
