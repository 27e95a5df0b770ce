package scraper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"mikabot/internal/domain"
	"mikabot/internal/storage"
)

// DefaultCacheTTL is how long a successful extraction is reused.
const DefaultCacheTTL = 24 * time.Hour

// CachedExtractor serves repeated links from a PreviewCache and collapses concurrent
// extractions of the same URL into one fetch. Only successes are cached.
type CachedExtractor struct {
	next  Extractor
	cache storage.PreviewCache
	ttl   time.Duration
	group singleflight.Group
	log   logrus.FieldLogger
}

// NewCachedExtractor wraps next with cache.
func NewCachedExtractor(next Extractor, cache storage.PreviewCache, ttl time.Duration, logger logrus.FieldLogger) *CachedExtractor {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedExtractor{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   logger.WithField("component", "cached_extractor"),
	}
}

// Extract returns cached metadata when available. Cache errors are logged and never
// turn a successful extraction into a failure.
func (c *CachedExtractor) Extract(ctx context.Context, url string) (domain.LinkMetadata, error) {
	log := c.log.WithField("url", url)

	meta, found, err := c.cache.GetPreview(ctx, url)
	switch {
	case err != nil:
		log.WithError(err).Warn("Preview cache read failed")
	case found:
		log.Debug("Preview cache hit")
		return meta, nil
	}

	// The shared fetch ignores caller cancellation and is bounded by the extractor's
	// timeout. A cancelled caller returns early; others still get the result.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(url, func() (interface{}, error) {
		meta, err := c.next.Extract(fetchCtx, url)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SavePreview(fetchCtx, meta, c.ttl); err != nil {
			log.WithError(err).Warn("Preview cache write failed")
		}
		return meta, nil
	})

	select {
	case <-ctx.Done():
		return domain.LinkMetadata{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.LinkMetadata{}, res.Err
		}
		if res.Shared {
			log.Debug("Joined in-flight extraction")
		}
		return res.Val.(domain.LinkMetadata), nil
	}
}
