package changes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
)

func newTracker(t *testing.T, opts ...TrackerOption) (*Tracker, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewTracker(store, opts...), store
}

func page(url, body string) *models.Candidate {
	return &models.Candidate{URL: url, Kind: models.KindPage, Raw: []byte(body)}
}

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
}

func TestShouldProcess_identicalBytesTrueThenFalse(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()

	proceed, fp1, err := tracker.ShouldProcess(ctx, page("https://example.org/a", "same"))
	require.NoError(t, err)
	assert.True(t, proceed)

	proceed, fp2, err := tracker.ShouldProcess(ctx, page("https://example.org/a", "same"))
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.Equal(t, fp1, fp2)
}

func TestShouldProcess_differentBytesAlwaysProceed(t *testing.T) {
	tracker, store := newTracker(t)
	ctx := context.Background()
	url := "https://example.org/a"

	proceed, _, err := tracker.ShouldProcess(ctx, page(url, "v1"))
	require.NoError(t, err)
	assert.True(t, proceed)

	proceed, fp, err := tracker.ShouldProcess(ctx, page(url, "v2"))
	require.NoError(t, err)
	assert.True(t, proceed)

	src, err := store.GetSource(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, fp, src.Fingerprint, "stored fingerprint reflects the latest bytes")
	assert.Equal(t, Fingerprint([]byte("v2")), src.Fingerprint)
	assert.Equal(t, models.StatusChanged, src.Status)
}

func TestShouldProcess_unchangedDoesNotMutate(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker, store := newTracker(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	url := "https://example.org/doc.pdf"

	_, _, err := tracker.ShouldProcess(ctx, &models.Candidate{URL: url, Kind: models.KindDocument, Raw: []byte("%PDF")})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	proceed, _, err := tracker.ShouldProcess(ctx, &models.Candidate{URL: url, Kind: models.KindDocument, Raw: []byte("%PDF")})
	require.NoError(t, err)
	assert.False(t, proceed)

	src, err := store.GetSource(ctx, url)
	require.NoError(t, err)
	assert.True(t, src.LastProcessedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.KindDocument, src.Kind)
}

func TestMarkFailed_forcesRetry(t *testing.T) {
	tracker, store := newTracker(t)
	ctx := context.Background()
	c := page("https://example.org/a", "body")

	proceed, _, err := tracker.ShouldProcess(ctx, c)
	require.NoError(t, err)
	require.True(t, proceed)

	require.NoError(t, tracker.MarkFailed(ctx, c))
	src, err := store.GetSource(ctx, c.URL)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, src.Status)
	assert.Empty(t, src.Fingerprint)

	proceed, _, err = tracker.ShouldProcess(ctx, c)
	require.NoError(t, err)
	assert.True(t, proceed)
}

func TestReset_forcesFullReprocessing(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()
	for _, u := range []string{"https://example.org/a", "https://example.org/b"} {
		_, _, err := tracker.ShouldProcess(ctx, page(u, "x"))
		require.NoError(t, err)
	}
	require.NoError(t, tracker.Reset(ctx))
	for _, u := range []string{"https://example.org/a", "https://example.org/b"} {
		proceed, _, err := tracker.ShouldProcess(ctx, page(u, "x"))
		require.NoError(t, err)
		assert.True(t, proceed, u)
	}
}
