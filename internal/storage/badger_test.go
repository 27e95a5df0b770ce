package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mikabot/internal/domain"
)

// setupTestCache creates a temporary on-disk BadgerDB cache for testing.
// It returns the cache instance and a cleanup function.
func setupTestCache(t *testing.T) (*BadgerPreviewCache, func()) {
	t.Helper()

	testLogger := logrus.New()
	testLogger.SetOutput(os.Stderr)
	testLogger.SetLevel(logrus.ErrorLevel)

	cache, err := NewBadgerPreviewCache(t.TempDir(), testLogger)
	require.NoError(t, err, "Failed to create test BadgerDB cache")

	cleanup := func() {
		assert.NoError(t, cache.Close(), "Failed to close test BadgerDB cache")
	}
	return cache, cleanup
}

// TestBadgerPreviewCache_SaveAndGet tests saving, reading and overwriting previews.
func TestBadgerPreviewCache_SaveAndGet(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	ctx := context.Background()
	meta := domain.LinkMetadata{
		SourceURL:    "https://example.com/page1",
		Title:        "Example Page 1",
		Description:  "Desc 1",
		ThumbnailURL: "https://example.com/thumb.png",
		SiteDomain:   "example.com",
	}

	require.NoError(t, cache.SavePreview(ctx, meta, 0))

	got, found, err := cache.GetPreview(ctx, meta.SourceURL)
	require.NoError(t, err)
	require.True(t, found, "Saved preview should be found")
	assert.Equal(t, meta, got)

	// --- Miss ---
	_, found, err = cache.GetPreview(ctx, "https://anothersite.net")
	require.NoError(t, err, "A miss should not error")
	assert.False(t, found)

	// --- Overwrite ---
	updated := meta
	updated.Title = "Updated Title"
	require.NoError(t, cache.SavePreview(ctx, updated, time.Hour))

	got, found, err = cache.GetPreview(ctx, meta.SourceURL)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Updated Title", got.Title)
}

// TestBadgerPreviewCache_DeletePreview tests deleting previews, including missing ones.
func TestBadgerPreviewCache_DeletePreview(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	ctx := context.Background()
	keep := domain.LinkMetadata{SourceURL: "https://example.com/to_keep", Title: "Keep Me", Description: "k"}
	drop := domain.LinkMetadata{SourceURL: "https://example.com/to_delete", Title: "Delete Me", Description: "d"}
	require.NoError(t, cache.SavePreview(ctx, keep, 0))
	require.NoError(t, cache.SavePreview(ctx, drop, 0))

	require.NoError(t, cache.DeletePreview(ctx, drop.SourceURL))

	_, found, err := cache.GetPreview(ctx, drop.SourceURL)
	require.NoError(t, err)
	assert.False(t, found, "Deleted preview should be gone")

	_, found, err = cache.GetPreview(ctx, keep.SourceURL)
	require.NoError(t, err)
	assert.True(t, found, "Other previews should survive a delete")

	assert.NoError(t, cache.DeletePreview(ctx, "https://example.com/does_not_exist"),
		"Deleting a non-existent preview should not return an error")
}

func TestBadgerPreviewCache_RejectsEmptyURL(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	err := cache.SavePreview(context.Background(), domain.LinkMetadata{Title: "x"}, 0)
	assert.Error(t, err)
}

func TestBadgerPreviewCache_InMemory(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cache, err := NewBadgerPreviewCache("", logger)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	meta := domain.LinkMetadata{SourceURL: "https://example.com", Title: "t", Description: "d"}
	require.NoError(t, cache.SavePreview(ctx, meta, time.Minute))

	_, found, err := cache.GetPreview(ctx, meta.SourceURL)
	require.NoError(t, err)
	assert.True(t, found)

	// RunGC returns immediately for in-memory caches.
	done := make(chan struct{})
	go func() {
		cache.RunGC(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC should return immediately for in-memory cache")
	}
}
