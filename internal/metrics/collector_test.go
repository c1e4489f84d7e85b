package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollector_RecordSearch(t *testing.T) {
	c := NewCollector()

	c.RecordSearch(true, 2, 10, 0.8, "target_reached_with_quality", false)
	c.RecordSearch(true, 4, 3, 0.5, "passes_exhausted", false)
	c.RecordSearch(false, 4, 0, 0, "fallback_failed", true)
	c.RecordSearch(true, 1, 5, 0.3, "target_reached_with_quality", false)

	snap := c.Snapshot()
	if snap.Search == nil {
		t.Fatal("Search snapshot missing")
	}
	s := snap.Search

	if s.Total != 4 || s.Succeeded != 3 {
		t.Errorf("Total/Succeeded = %d/%d, want 4/3", s.Total, s.Succeeded)
	}
	if s.SuccessRate != 0.75 {
		t.Errorf("SuccessRate = %v, want 0.75", s.SuccessRate)
	}
	if s.AvgPasses != 2.75 {
		t.Errorf("AvgPasses = %v, want 2.75", s.AvgPasses)
	}
	if s.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", s.Fallbacks)
	}

	// Zero-result search contributes to no quality bucket.
	if s.QualityLow != 1 || s.QualityMedium != 1 || s.QualityHigh != 1 {
		t.Errorf("quality buckets = %d/%d/%d, want 1/1/1", s.QualityLow, s.QualityMedium, s.QualityHigh)
	}
	if s.StopReasons["target_reached_with_quality"] != 2 {
		t.Errorf("StopReasons = %v", s.StopReasons)
	}
}

func TestCollector_EmptySnapshot(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.Search != nil {
		t.Error("empty collector should have nil search snapshot")
	}
	if len(snap.Operations) != 0 {
		t.Error("empty collector should have no operations")
	}
}

func TestCollector_RecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpSearchPass, 10*time.Millisecond)
	c.RecordTiming(OpSearchPass, 30*time.Millisecond)

	snap := c.Snapshot()
	op := snap.Operations[OpSearchPass]
	if op == nil {
		t.Fatal("missing search_pass operation")
	}
	if op.Count != 2 || op.MinTimeMs != 10 || op.MaxTimeMs != 30 {
		t.Errorf("got %+v", op)
	}
	if op.AvgTimeMs != 20 {
		t.Errorf("AvgTimeMs = %v, want 20", op.AvgTimeMs)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.RecordSearch(true, 1, 5, 0.6, "target_reached_with_quality", false)
				c.RecordTiming(OpSearch, time.Millisecond)
				c.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Search.Total != 400 {
		t.Errorf("Total = %d, want 400", snap.Search.Total)
	}
	if snap.Operations[OpSearch].Count != 400 {
		t.Errorf("op count = %d, want 400", snap.Operations[OpSearch].Count)
	}
}
