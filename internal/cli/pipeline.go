package cli

import (
	"fmt"

	"github.com/pfrederiksen/run-events/internal/aggregator"
	"github.com/pfrederiksen/run-events/internal/cache"
	"github.com/pfrederiksen/run-events/internal/config"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/pfrederiksen/run-events/internal/scraper"
	"github.com/pfrederiksen/run-events/internal/storage"
)

// buildExtractors returns the enabled web extractors in a fixed order.
func buildExtractors(cfg *config.Config) []scraper.Extractor {
	var extractors []scraper.Extractor

	src := cfg.Sources
	if src.IndiaRunning.Enabled {
		extractors = append(extractors, scraper.NewIndiaRunning(src.IndiaRunning.BaseURL, src.IndiaRunning.Timeout))
	}
	if src.BhaagoIndia.Enabled {
		extractors = append(extractors, scraper.NewBhaagoIndia(src.BhaagoIndia.BaseURL, src.BhaagoIndia.Timeout, src.BhaagoIndia.DetailConcurrency))
	}
	if src.Townscript.Enabled {
		extractors = append(extractors, scraper.NewTownscript(src.Townscript.BaseURL, src.Townscript.Timeout, src.Townscript.PageSize))
	}

	return extractors
}

// buildAggregator wires the extractors and the curated list.
func buildAggregator(cfg *config.Config) (*aggregator.Aggregator, error) {
	manual, err := scraper.LoadManual(cfg.ManualEvents)
	if err != nil {
		return nil, fmt.Errorf("loading manual events: %w", err)
	}

	extractors := buildExtractors(cfg)
	names := make([]string, 0, len(extractors))
	for _, ex := range extractors {
		names = append(names, ex.Name())
	}
	logger.Info("Sources configured", logger.Fields{
		"sources":       names,
		"manual_events": manual.Len(),
	})

	return aggregator.New(extractors, manual), nil
}

// buildCache selects the cache backend.
func buildCache(cfg *config.Config, agg cache.Aggregator) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		store, err := storage.New(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		logger.Info("Using shared file cache", logger.Fields{"dir": store.Dir(), "ttl": cfg.Cache.TTL.String()})
		return cache.NewShared(agg, store, cache.WithTTL(cfg.Cache.TTL)), nil
	default:
		logger.Info("Using in-memory cache", logger.Fields{"ttl": cfg.Cache.TTL.String()})
		return cache.NewMemory(agg, cache.WithTTL(cfg.Cache.TTL)), nil
	}
}
