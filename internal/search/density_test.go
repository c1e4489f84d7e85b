package search

import (
	"strings"
	"testing"
)

func TestEstimateDensity(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  float64
	}{
		{name: "specific marker", query: "a very specific question", want: 0.3},
		{name: "long query", query: strings.Repeat("term ", 20), want: 0.3},
		{name: "broad word", query: "tell me about rivers", want: 0.7},
		{name: "neutral", query: "zebra migration patterns", want: 0.5},
		{name: "specific wins over broad", query: "specific information", want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateDensity(tt.query); got != tt.want {
				t.Errorf("estimateDensity(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestDensityKey(t *testing.T) {
	long := strings.Repeat("x", 200)
	if got := densityKey(long); len(got) != densityKeyLen {
		t.Errorf("key length = %d, want %d", len(got), densityKeyLen)
	}

	if densityKey("Hello World") != densityKey("  hello world  ") {
		t.Error("key should normalize case and surrounding whitespace")
	}
}

func TestDensityEstimator_Cache(t *testing.T) {
	d := NewDensityEstimator()

	first := d.Estimate("zebra migration patterns")
	second := d.Estimate("zebra migration patterns")
	if first != second {
		t.Errorf("cached estimate diverged: %v vs %v", first, second)
	}
	if d.CacheLen() != 1 {
		t.Errorf("CacheLen() = %d, want 1", d.CacheLen())
	}

	d.Estimate("another query entirely")
	if d.CacheLen() != 2 {
		t.Errorf("CacheLen() = %d, want 2", d.CacheLen())
	}
}
