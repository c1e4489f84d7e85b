package search

import (
	"sort"
	"sync"

	"github.com/danja/semem-sub000/internal/zpt"
)

// DefaultLedgerWindow bounds the per-bucket sliding window of recorded
// samples. It doubles as the denominator of the learning confidence
// scale.
const DefaultLedgerWindow = 50

// String renders the key as "type/zoom" for snapshots and logs.
func (k LedgerKey) String() string {
	return string(k.QueryType) + "/" + string(k.Zoom)
}

// ledgerSample is one (threshold, success) observation.
type ledgerSample struct {
	threshold float64
	success   bool
}

type ledgerBucket struct {
	window    []ledgerSample
	recorded  int
	succeeded int
}

// PerformanceLedger maps (query type, zoom level) to a bounded window of
// recent search outcomes. One instance is shared by all concurrent
// searches; it lives only for the life of the process. Writes are
// best-effort from the engine's point of view but the structure itself
// is always consistent.
type PerformanceLedger struct {
	mu      sync.RWMutex
	size    int
	buckets map[LedgerKey]*ledgerBucket
}

// NewPerformanceLedger returns an empty ledger with the given window
// size. Non-positive sizes fall back to DefaultLedgerWindow.
func NewPerformanceLedger(size int) *PerformanceLedger {
	if size <= 0 {
		size = DefaultLedgerWindow
	}
	return &PerformanceLedger{
		size:    size,
		buckets: make(map[LedgerKey]*ledgerBucket),
	}
}

// Window reports the configured window size.
func (l *PerformanceLedger) Window() int {
	return l.size
}

// Record appends one observation to the bucket for key, evicting the
// oldest sample once the window is full.
func (l *PerformanceLedger) Record(key LedgerKey, threshold float64, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		b = &ledgerBucket{window: make([]ledgerSample, 0, l.size)}
		l.buckets[key] = b
	}

	if len(b.window) >= l.size {
		copy(b.window, b.window[1:])
		b.window = b.window[:len(b.window)-1]
	}
	b.window = append(b.window, ledgerSample{threshold: threshold, success: success})

	b.recorded++
	if success {
		b.succeeded++
	}
}

// RecordOutcome derives the bucket key and success flag from a completed
// search and records it against the primary threshold that was used.
func (l *PerformanceLedger) RecordOutcome(outcome SearchOutcome, threshold float64, analysis QueryAnalysis, nav zpt.NavigationState) {
	l.Record(LedgerKey{QueryType: analysis.Type, Zoom: nav.Zoom}, threshold, outcome.Success)
}

// BucketStats is the learning view of one bucket: counts over the
// current window, plus the lifetime total.
type BucketStats struct {
	Samples     int     `json:"samples"`
	SuccessRate float64 `json:"success_rate"`
	Recorded    int     `json:"recorded"`
}

// Bucket returns windowed stats for key. The second return is false when
// the key has never been recorded.
func (l *PerformanceLedger) Bucket(key LedgerKey) (BucketStats, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b := l.buckets[key]
	if b == nil {
		return BucketStats{}, false
	}

	stats := BucketStats{Samples: len(b.window), Recorded: b.recorded}
	if len(b.window) > 0 {
		ok := 0
		for _, s := range b.window {
			if s.success {
				ok++
			}
		}
		stats.SuccessRate = float64(ok) / float64(len(b.window))
	}
	return stats, true
}

// LedgerBucketSnapshot is the observability view of one bucket.
type LedgerBucketSnapshot struct {
	Key              string  `json:"key"`
	WindowSamples    int     `json:"window_samples"`
	WindowSuccess    float64 `json:"window_success_rate"`
	Recorded         int     `json:"recorded"`
	Succeeded        int     `json:"succeeded"`
	AverageThreshold float64 `json:"average_threshold"`
}

// LedgerSnapshot aggregates the whole ledger for the metrics surface.
type LedgerSnapshot struct {
	Window        int                    `json:"window"`
	TotalRecorded int                    `json:"total_recorded"`
	Buckets       []LedgerBucketSnapshot `json:"buckets,omitempty"`
}

// Snapshot returns a point-in-time copy of all buckets, sorted by key
// for stable output. Read-only and side-effect-free.
func (l *PerformanceLedger) Snapshot() LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := LedgerSnapshot{
		Window:  l.size,
		Buckets: make([]LedgerBucketSnapshot, 0, len(l.buckets)),
	}
	for key, b := range l.buckets {
		bs := LedgerBucketSnapshot{
			Key:       key.String(),
			Recorded:  b.recorded,
			Succeeded: b.succeeded,
		}
		bs.WindowSamples = len(b.window)
		if len(b.window) > 0 {
			ok := 0
			sum := 0.0
			for _, s := range b.window {
				if s.success {
					ok++
				}
				sum += s.threshold
			}
			bs.WindowSuccess = float64(ok) / float64(len(b.window))
			bs.AverageThreshold = sum / float64(len(b.window))
		}
		snap.TotalRecorded += b.recorded
		snap.Buckets = append(snap.Buckets, bs)
	}
	sort.Slice(snap.Buckets, func(i, j int) bool { return snap.Buckets[i].Key < snap.Buckets[j].Key })
	return snap
}
