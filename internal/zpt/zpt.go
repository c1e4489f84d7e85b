// Package zpt defines the zoom/pan/tilt navigation model used to steer
// semantic search: zoom selects retrieval granularity, pan narrows results
// by domain/keyword/entity/time filters, and tilt selects the retrieval lens.
package zpt

import (
	"fmt"
	"time"
)

// ZoomLevel is the requested granularity of retrieval.
type ZoomLevel string

const (
	ZoomEntity    ZoomLevel = "entity"
	ZoomUnit      ZoomLevel = "unit"
	ZoomText      ZoomLevel = "text"
	ZoomCommunity ZoomLevel = "community"
	ZoomCorpus    ZoomLevel = "corpus"
	ZoomMicro     ZoomLevel = "micro"
)

// DefaultZoom is used when a caller supplies no zoom level.
const DefaultZoom = ZoomEntity

// ParseZoom converts a string into a ZoomLevel.
// An empty string maps to DefaultZoom; unknown values are an error.
func ParseZoom(s string) (ZoomLevel, error) {
	switch ZoomLevel(s) {
	case "":
		return DefaultZoom, nil
	case ZoomEntity, ZoomUnit, ZoomText, ZoomCommunity, ZoomCorpus, ZoomMicro:
		return ZoomLevel(s), nil
	default:
		return "", fmt.Errorf("unknown zoom level: %q", s)
	}
}

// TiltStyle is the retrieval lens applied to the search.
type TiltStyle string

const (
	TiltGraph     TiltStyle = "graph"
	TiltEmbedding TiltStyle = "embedding"
	TiltTemporal  TiltStyle = "temporal"
	TiltKeywords  TiltStyle = "keywords"
)

// DefaultTilt is used when a caller supplies no tilt style.
const DefaultTilt = TiltEmbedding

// ParseTilt converts a string into a TiltStyle.
// An empty string maps to DefaultTilt; unknown values are an error.
func ParseTilt(s string) (TiltStyle, error) {
	switch TiltStyle(s) {
	case "":
		return DefaultTilt, nil
	case TiltGraph, TiltEmbedding, TiltTemporal, TiltKeywords:
		return TiltStyle(s), nil
	default:
		return "", fmt.Errorf("unknown tilt style: %q", s)
	}
}

// TimeRange bounds a temporal pan filter. Zero Start or End leaves that
// side of the range open.
type TimeRange struct {
	Start time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End   time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// Contains reports whether t falls inside the range, honoring open sides.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// IsZero reports whether both bounds are unset.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Pan filter kind names, used in stats reporting and boost maps.
const (
	PanKindKeywords = "keywords"
	PanKindDomains  = "domains"
	PanKindEntities = "entities"
	PanKindTemporal = "temporal"
)

// PanFilter narrows search results. Every field is independently optional;
// a zero PanFilter is a no-op.
type PanFilter struct {
	Domains  []string   `json:"domains,omitempty" yaml:"domains,omitempty"`
	Keywords []string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Entities []string   `json:"entities,omitempty" yaml:"entities,omitempty"`
	Temporal *TimeRange `json:"temporal,omitempty" yaml:"temporal,omitempty"`
}

// ActiveKinds returns the names of the filter kinds that carry values,
// in a fixed order.
func (p PanFilter) ActiveKinds() []string {
	var kinds []string
	if len(p.Keywords) > 0 {
		kinds = append(kinds, PanKindKeywords)
	}
	if len(p.Domains) > 0 {
		kinds = append(kinds, PanKindDomains)
	}
	if len(p.Entities) > 0 {
		kinds = append(kinds, PanKindEntities)
	}
	if p.Temporal != nil && !p.Temporal.IsZero() {
		kinds = append(kinds, PanKindTemporal)
	}
	return kinds
}

// IsZero reports whether no filter kind is active.
func (p PanFilter) IsZero() bool {
	return len(p.ActiveKinds()) == 0
}

// NavigationState is the caller-supplied view position for one search.
// It is treated as immutable for the duration of the call.
type NavigationState struct {
	Zoom ZoomLevel `json:"zoom" yaml:"zoom"`
	Pan  PanFilter `json:"pan,omitempty" yaml:"pan,omitempty"`
	Tilt TiltStyle `json:"tilt,omitempty" yaml:"tilt,omitempty"`
}

// Normalize returns a copy with zero zoom/tilt replaced by defaults.
// Unknown values also degrade to defaults rather than failing: threshold
// calculation must never error out on a malformed navigation state.
func (n NavigationState) Normalize() NavigationState {
	if z, err := ParseZoom(string(n.Zoom)); err == nil {
		n.Zoom = z
	} else {
		n.Zoom = DefaultZoom
	}
	if t, err := ParseTilt(string(n.Tilt)); err == nil {
		n.Tilt = t
	} else {
		n.Tilt = DefaultTilt
	}
	return n
}
