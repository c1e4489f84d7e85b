// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Operation names for the collector.
const (
	OpSearch     = "search"
	OpSearchPass = "search_pass"
	OpEmbedding  = "embedding"
	OpStoreQuery = "store_query"
)

// Quality histogram boundaries: below Low is a poor outcome, at or above
// High a strong one.
const (
	QualityBucketLow  = 0.4
	QualityBucketHigh = 0.7
)

// searchMetrics accumulates adaptive-engine counters.
type searchMetrics struct {
	total        int64
	succeeded    int64
	fallbacks    int64
	totalPasses  int64
	totalResults int64

	qualityLow    int64
	qualityMedium int64
	qualityHigh   int64

	stopReasons map[string]int64
}

// SearchSnapshot is the computed view of the engine counters.
type SearchSnapshot struct {
	Total       int64   `json:"total"`
	Succeeded   int64   `json:"succeeded"`
	SuccessRate float64 `json:"success_rate"`
	Fallbacks   int64   `json:"fallbacks"`
	AvgPasses   float64 `json:"avg_passes"`
	AvgResults  float64 `json:"avg_results"`

	QualityLow    int64 `json:"quality_low"`
	QualityMedium int64 `json:"quality_medium"`
	QualityHigh   int64 `json:"quality_high"`

	StopReasons map[string]int64 `json:"stop_reasons,omitempty"`
}

// Snapshot represents the full statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64                       `json:"uptime_seconds"`
	Search        *SearchSnapshot               `json:"search,omitempty"`
	Operations    map[string]*OperationSnapshot `json:"operations,omitempty"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	search    searchMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		search:    searchMetrics{stopReasons: make(map[string]int64)},
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordSearch records one completed adaptive search. Quality buckets
// are only populated for searches that produced results.
func (c *Collector) RecordSearch(success bool, passes, results int, avgQuality float64, stopReason string, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.search.total++
	if success {
		c.search.succeeded++
	}
	if fallback {
		c.search.fallbacks++
	}
	c.search.totalPasses += int64(passes)
	c.search.totalResults += int64(results)

	if results > 0 {
		switch {
		case avgQuality < QualityBucketLow:
			c.search.qualityLow++
		case avgQuality < QualityBucketHigh:
			c.search.qualityMedium++
		default:
			c.search.qualityHigh++
		}
	}

	if stopReason != "" {
		c.search.stopReasons[stopReason]++
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

func snapshotSearch(s *searchMetrics) *SearchSnapshot {
	if s.total == 0 {
		return nil
	}

	snap := &SearchSnapshot{
		Total:         s.total,
		Succeeded:     s.succeeded,
		SuccessRate:   float64(s.succeeded) / float64(s.total),
		Fallbacks:     s.fallbacks,
		AvgPasses:     float64(s.totalPasses) / float64(s.total),
		AvgResults:    float64(s.totalResults) / float64(s.total),
		QualityLow:    s.qualityLow,
		QualityMedium: s.qualityMedium,
		QualityHigh:   s.qualityHigh,
	}
	if len(s.stopReasons) > 0 {
		snap.StopReasons = make(map[string]int64, len(s.stopReasons))
		for k, v := range s.stopReasons {
			snap.StopReasons[k] = v
		}
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Search:        snapshotSearch(&c.search),
	}
	for op, m := range c.ops {
		if opSnap := snapshotOp(m); opSnap != nil {
			if snap.Operations == nil {
				snap.Operations = make(map[string]*OperationSnapshot)
			}
			snap.Operations[op] = opSnap
		}
	}
	return snap
}
