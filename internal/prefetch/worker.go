package prefetch

import (
	"context"
	"time"

	"newsloop/internal/cache"
	"newsloop/internal/reader"
	"newsloop/internal/store"

	"go.uber.org/zap"
)

// Worker warms the readable-content cache. Every successful like or
// comment enqueues the article URL; the worker pops URLs, extracts the
// readable body and stores it so the read-mode view is instant even after
// the source feed drops the article.
type Worker struct {
	store     store.Store
	cache     *cache.ContentCache
	logger    *zap.Logger
	extractor reader.Extractor
}

// NewWorker initializes the worker with the DefaultExtractor.
func NewWorker(st store.Store, cc *cache.ContentCache, logger *zap.Logger) *Worker {
	return &Worker{
		store:     st,
		cache:     cc,
		logger:    logger,
		extractor: &reader.DefaultExtractor{},
	}
}

// SetExtractor swaps the extractor, for tests.
func (w *Worker) SetExtractor(e reader.Extractor) { w.extractor = e }

// Start runs the worker loop
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Prefetch worker started. Waiting for jobs...")

	for {
		// Wait for job (Blocking call to Redis)
		url, err := w.store.PopPrefetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Prefetch worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		w.processJob(url)
	}
}

func (w *Worker) processJob(url string) {
	logger := w.logger.With(zap.String("url", url))

	if _, err := w.cache.Get(url); err == nil {
		logger.Debug("Content already cached, skipping")
		return
	}

	logger.Info("Extracting readable content")
	art, err := w.extractor.Extract(url, 30*time.Second)
	if err != nil {
		logger.Error("Extraction failed", zap.Error(err))
		return
	}

	if err := w.cache.Put(url, art.Content); err != nil {
		logger.Error("Failed to cache content", zap.Error(err))
		return
	}

	logger.Info("Content cached", zap.String("title", art.Title))
}
