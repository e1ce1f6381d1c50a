// Package monitoring records degradation events so operators can watch the
// aggregator's health without scraping logs.
package monitoring

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsSnapshot is a point-in-time view of degradation counters since
// process start.
type MetricsSnapshot struct {
	SourceFailures     map[string]int `json:"source_failures"`
	CacheHits          int            `json:"cache_hits"`
	CacheMisses        int            `json:"cache_misses"`
	CacheWriteFailures int            `json:"cache_write_failures"`
	FallbacksEngaged   int            `json:"fallbacks_engaged"`
	RefreshCycles      int            `json:"refresh_cycles"`
	CollectedAt        time.Time      `json:"collected_at"`
}

// Events accumulates degradation counters. Every increment also emits a
// structured log event, so each failure branch is observable both ways.
type Events struct {
	mu                 sync.Mutex
	sourceFailures     map[string]int
	cacheHits          int
	cacheMisses        int
	cacheWriteFailures int
	fallbacksEngaged   int
	refreshCycles      int
}

// NewEvents creates an empty recorder.
func NewEvents() *Events {
	return &Events{sourceFailures: make(map[string]int)}
}

// RefreshStarted marks the beginning of an aggregation cycle.
func (e *Events) RefreshStarted(runID string) {
	e.mu.Lock()
	e.refreshCycles++
	e.mu.Unlock()
	zap.L().Info("aggregation cycle started", zap.String("run_id", runID))
}

// SourceFailure records one source's fetch failing; siblings are unaffected.
func (e *Events) SourceFailure(runID, source string, err error) {
	e.mu.Lock()
	e.sourceFailures[source]++
	e.mu.Unlock()
	zap.L().Warn("source unavailable",
		zap.String("run_id", runID),
		zap.String("source", source),
		zap.Error(err),
	)
}

// CacheHit records serving a still-valid cached snapshot.
func (e *Events) CacheHit(runID string, cachedAt time.Time) {
	e.mu.Lock()
	e.cacheHits++
	e.mu.Unlock()
	zap.L().Info("serving cached snapshot",
		zap.String("run_id", runID),
		zap.Time("cached_at", cachedAt),
	)
}

// CacheMiss records an empty or expired cache slot.
func (e *Events) CacheMiss(runID string) {
	e.mu.Lock()
	e.cacheMisses++
	e.mu.Unlock()
	zap.L().Warn("cache miss", zap.String("run_id", runID))
}

// CacheWriteFailure records a failed snapshot write. Non-fatal: the cycle
// continues without caching.
func (e *Events) CacheWriteFailure(runID string, err error) {
	e.mu.Lock()
	e.cacheWriteFailures++
	e.mu.Unlock()
	zap.L().Warn("cache write failed, continuing uncached",
		zap.String("run_id", runID),
		zap.Error(err),
	)
}

// FallbackEngaged records falling through to the static snapshot.
func (e *Events) FallbackEngaged(runID string) {
	e.mu.Lock()
	e.fallbacksEngaged++
	e.mu.Unlock()
	zap.L().Warn("static fallback engaged", zap.String("run_id", runID))
}

// Snapshot returns a copy of all counters.
func (e *Events) Snapshot() MetricsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	failures := make(map[string]int, len(e.sourceFailures))
	for k, v := range e.sourceFailures {
		failures[k] = v
	}

	return MetricsSnapshot{
		SourceFailures:     failures,
		CacheHits:          e.cacheHits,
		CacheMisses:        e.cacheMisses,
		CacheWriteFailures: e.cacheWriteFailures,
		FallbacksEngaged:   e.fallbacksEngaged,
		RefreshCycles:      e.refreshCycles,
		CollectedAt:        time.Now().UTC(),
	}
}
