package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/cache/file"
	"github.com/marutilai/open-deep-research/internal/domain"
)

func TestResultCache(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip a result and create the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "cache")
		cache := file.NewResultCache(dir)

		result := &domain.AngleResult{
			CompanyName:     "Acme",
			ResearchAngle:   domain.AngleCompanyContext,
			Summary:         "s",
			Findings:        []domain.Finding{},
			ResearchQuality: domain.QualityLimited,
			ErrorKind:       domain.ErrorKindTimeout,
		}
		require.NoError(t, cache.Set(ctx, "abc", result))

		got, err := cache.Get(ctx, "abc")
		require.NoError(t, err)
		require.Equal(t, "Acme", got.CompanyName)
		require.Equal(t, domain.ErrorKindTimeout, got.ErrorKind)
		require.FileExists(t, filepath.Join(dir, "abc.json"))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("should miss unknown keys", func(t *testing.T) {
		cache := file.NewResultCache(t.TempDir())

		_, err := cache.Get(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("should treat corrupt files as a miss", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{oops"), 0o600))
		cache := file.NewResultCache(dir)

		_, err := cache.Get(ctx, "bad")
		require.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("should overwrite existing entries", func(t *testing.T) {
		cache := file.NewResultCache(t.TempDir())

		require.NoError(t, cache.Set(ctx, "k", &domain.AngleResult{Summary: "old"}))
		require.NoError(t, cache.Set(ctx, "k", &domain.AngleResult{Summary: "new"}))

		got, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "new", got.Summary)
	})
}
