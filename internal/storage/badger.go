package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"mikabot/internal/domain"
)

// BadgerPreviewCache implements the PreviewCache interface using BadgerDB.
type BadgerPreviewCache struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerPreviewCache opens the cache at dbPath. An empty dbPath keeps the cache in memory.
func NewBadgerPreviewCache(dbPath string, logger logrus.FieldLogger) (*BadgerPreviewCache, error) {
	opts := badger.DefaultOptions(dbPath)
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %q: %w", dbPath, err)
	}
	logger.WithField("path", dbPath).Info("Preview cache opened")

	return &BadgerPreviewCache{
		db:  db,
		log: logger.WithField("component", "preview_cache"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (c *BadgerPreviewCache) Close() error {
	c.log.Info("Closing BadgerDB...")
	if err := c.db.Close(); err != nil {
		c.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	c.log.Info("BadgerDB closed.")
	return nil
}

// generatePreviewKey creates the key for a cached preview.
// Format: preview:{url}
func generatePreviewKey(url string) []byte {
	return []byte("preview:" + url)
}

// SavePreview stores or replaces the cached metadata for meta.SourceURL.
func (c *BadgerPreviewCache) SavePreview(ctx context.Context, meta domain.LinkMetadata, ttl time.Duration) error {
	log := c.log.WithField("url", meta.SourceURL)

	if meta.SourceURL == "" {
		return errors.New("preview has no source url")
	}

	value, err := json.Marshal(meta)
	if err != nil {
		log.WithError(err).Error("Failed to marshal preview to JSON")
		return fmt.Errorf("failed to marshal preview: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(generatePreviewKey(meta.SourceURL), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		log.WithError(err).Error("Failed to save preview to BadgerDB")
		return fmt.Errorf("failed to save preview: %w", err)
	}

	log.Debug("Preview cached")
	return nil
}

// GetPreview retrieves cached metadata for url.
func (c *BadgerPreviewCache) GetPreview(ctx context.Context, url string) (domain.LinkMetadata, bool, error) {
	var meta domain.LinkMetadata

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(generatePreviewKey(url))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.LinkMetadata{}, false, nil
	}
	if err != nil {
		c.log.WithError(err).WithField("url", url).Error("Failed to read preview from BadgerDB")
		return domain.LinkMetadata{}, false, fmt.Errorf("failed to get preview for %s: %w", url, err)
	}
	return meta, true, nil
}

// DeletePreview removes the cached metadata for url.
func (c *BadgerPreviewCache) DeletePreview(ctx context.Context, url string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(generatePreviewKey(url))
	})
	if err != nil {
		c.log.WithError(err).WithField("url", url).Error("Failed to delete preview from BadgerDB")
		return fmt.Errorf("failed to delete preview %s: %w", url, err)
	}
	return nil
}

// RunGC periodically reclaims value log space until ctx is cancelled.
func (c *BadgerPreviewCache) RunGC(ctx context.Context, interval time.Duration) {
	if c.db.Opts().InMemory {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := c.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				c.log.Debug("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
				c.log.Debug("BadgerDB GC: No rewrite needed")
			default:
				c.log.WithError(err).Warn("BadgerDB GC failed")
			}
		case <-ctx.Done():
			c.log.Debug("Stopping BadgerDB GC routine")
			return
		}
	}
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
