package stream_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/stream"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.Progress
}

func (o *recordingObserver) OnProgress(_ context.Context, p domain.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, p)
}

func (o *recordingObserver) kinds() []domain.ProgressKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	kinds := make([]domain.ProgressKind, 0, len(o.events))
	for _, e := range o.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func lines(l ...string) io.Reader {
	return strings.NewReader(strings.Join(l, "\n") + "\n")
}

func TestReader_Read(t *testing.T) {
	t.Run("should survive a malformed line between valid events", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"notes": ["a"]}`,
			`data: not-json`,
			`data: {"final_report": "hello world"}`,
		))

		require.NoError(t, err)
		require.Equal(t, []string{"a"}, result.Notes)
		require.Equal(t, "hello world", result.FinalReport)
		require.Equal(t, 1, result.Skipped)
		require.Equal(t, 2, result.Events)
	})

	t.Run("should concatenate note batches in arrival order", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"notes": ["a", "b"]}`,
			``,
			`data: {"notes": []}`,
			`data: {"notes": ["c"], "unknown_key": 42}`,
			`data: {"notes": ["d"], "final_report": "done"}`,
		))

		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c", "d"}, result.Notes)
		require.Equal(t, "done", result.FinalReport)
	})

	t.Run("should stop at the first final report", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"final_report": "first"}`,
			`data: {"notes": ["late"], "final_report": "second"}`,
		))

		require.NoError(t, err)
		require.Equal(t, "first", result.FinalReport)
		require.Empty(t, result.Notes)
		require.Equal(t, 1, result.Lines)
	})

	t.Run("should treat a null final report as absent", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"final_report": null, "notes": ["x"]}`,
			`data: {"final_report": "real"}`,
		))

		require.NoError(t, err)
		require.Equal(t, "real", result.FinalReport)
		require.Equal(t, []string{"x"}, result.Notes)
	})

	t.Run("should report an incomplete result for an empty final report", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"notes": ["a"]}`,
			`data: {"final_report": ""}`,
		))

		require.ErrorIs(t, err, domain.ErrIncomplete)
		require.Empty(t, result.FinalReport)
		require.Equal(t, []string{"a"}, result.Notes)
	})

	t.Run("should keep reading past an empty final report", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"final_report": ""}`,
			`data: {"final_report": "real"}`,
		))

		require.NoError(t, err)
		require.Equal(t, "real", result.FinalReport)
		require.Equal(t, 2, result.Events)
	})

	t.Run("should report an incomplete result when the stream closes early", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"notes": ["a"]}`,
			`data: {"notes": ["b"]}`,
		))

		require.ErrorIs(t, err, domain.ErrIncomplete)
		require.Equal(t, []string{"a", "b"}, result.Notes)

		var researchErr *domain.ResearchError
		require.ErrorAs(t, err, &researchErr)
		require.Equal(t, []string{"a", "b"}, researchErr.Notes)
	})

	t.Run("should report an incomplete result for an empty stream", func(t *testing.T) {
		reader := stream.NewReader()

		_, err := reader.Read(context.Background(), strings.NewReader(""))

		require.ErrorIs(t, err, domain.ErrIncomplete)
	})

	t.Run("should keep the latest cost tracking and research brief", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`data: {"cost_tracking": {"total_cost": 0.1}, "research_brief": "v1"}`,
			`data: {"cost_tracking": null}`,
			`data: {"cost_tracking": {"total_cost": 0.3, "total_input_tokens": 10, "total_output_tokens": 5}, "research_brief": "v2"}`,
			`data: {"final_report": "r"}`,
		))

		require.NoError(t, err)
		require.NotNil(t, result.CostTracking)
		require.InDelta(t, 0.3, result.CostTracking.TotalCost, 1e-9)
		require.Equal(t, int64(10), *result.CostTracking.TotalInputTokens)
		require.Equal(t, "v2", result.ResearchBrief)
	})

	t.Run("should skip lines without a data prefix and non-object payloads", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(), lines(
			`: keep-alive`,
			`event: values`,
			`data: [1, 2]`,
			`data: "text"`,
			`data:`,
			`data: {"final_report": "ok"}`,
		))

		require.NoError(t, err)
		require.Equal(t, "ok", result.FinalReport)
		require.Equal(t, 4, result.Skipped)
	})

	t.Run("should handle CRLF line endings", func(t *testing.T) {
		reader := stream.NewReader()

		result, err := reader.Read(context.Background(),
			strings.NewReader("data: {\"notes\": [\"a\"]}\r\n\r\ndata: {\"final_report\": \"r\"}\r\n"))

		require.NoError(t, err)
		require.Equal(t, []string{"a"}, result.Notes)
		require.Equal(t, "r", result.FinalReport)
	})

	t.Run("should read very long lines", func(t *testing.T) {
		reader := stream.NewReader()
		report := strings.Repeat("x", 2*1024*1024)

		result, err := reader.Read(context.Background(), lines(`data: {"final_report": "`+report+`"}`))

		require.NoError(t, err)
		require.Len(t, result.FinalReport, len(report))
	})

	t.Run("should fail on lines above the configured limit", func(t *testing.T) {
		reader := stream.NewReader(stream.WithMaxLineSize(1024))

		_, err := reader.Read(context.Background(), lines(`data: {"final_report": "`+strings.Repeat("x", 4096)+`"}`))

		require.ErrorIs(t, err, domain.ErrIncomplete)
		require.ErrorIs(t, err, bufio.ErrTooLong)
		require.Contains(t, err.Error(), "chunk too big")
	})

	t.Run("should wrap body read errors", func(t *testing.T) {
		reader := stream.NewReader()
		cause := errors.New("connection reset by peer")

		result, err := reader.Read(context.Background(), io.MultiReader(
			lines(`data: {"notes": ["a"]}`),
			iotest.ErrReader(cause),
		))

		require.ErrorIs(t, err, cause)
		require.Equal(t, []string{"a"}, result.Notes)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		reader := stream.NewReader()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := reader.Read(ctx, lines(`data: {"final_report": "r"}`))

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("should notify the observer", func(t *testing.T) {
		observer := &recordingObserver{}
		reader := stream.NewReader(stream.WithObserver(observer))

		_, err := reader.Read(context.Background(), lines(
			`event: values`,
			`data: {"notes": ["a"]}`,
			`data: broken`,
			`data: {"final_report": "r"}`,
		))

		require.NoError(t, err)
		require.Equal(t, []domain.ProgressKind{
			domain.ProgressEvent,
			domain.ProgressNotes,
			domain.ProgressSkip,
			domain.ProgressFinalReport,
		}, observer.kinds())
	})
}
