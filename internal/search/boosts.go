package search

import (
	"regexp"
	"strings"

	"github.com/danja/semem-sub000/internal/zpt"
)

// literalPattern compiles term into a case-insensitive pattern matching
// it as literal text. Keyword and entity matching both go through this
// one escape path.
func literalPattern(term string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
}

type termPattern struct {
	term string
	re   *regexp.Regexp
}

// panMatcher applies one call's pan filters to raw candidates: keyword
// and entity matches boost adjusted similarity, domain and temporal
// filters drop candidates outright. Patterns are compiled once per call
// and reused across passes.
type panMatcher struct {
	keywords      []termPattern
	entities      []termPattern
	domains       []string
	temporal      *zpt.TimeRange
	keywordFactor float64
	entityFactor  float64
	applied       []string
}

// newPanMatcher compiles the matcher for one call. An empty pan filter
// yields a pass-through matcher.
func newPanMatcher(pan zpt.PanFilter, opts Options) *panMatcher {
	m := &panMatcher{
		keywordFactor: opts.KeywordBoostFactor,
		entityFactor:  opts.EntityBoostFactor,
	}

	for _, kw := range pan.Keywords {
		m.keywords = append(m.keywords, termPattern{term: kw, re: literalPattern(kw)})
	}
	for _, ent := range pan.Entities {
		m.entities = append(m.entities, termPattern{term: ent, re: literalPattern(ent)})
	}
	if opts.EnableDomainFilter {
		for _, d := range pan.Domains {
			m.domains = append(m.domains, strings.ToLower(d))
		}
	}
	if opts.EnableTemporalFilter && pan.Temporal != nil && !pan.Temporal.IsZero() {
		m.temporal = pan.Temporal
	}

	if len(m.keywords) > 0 {
		m.applied = append(m.applied, zpt.PanKindKeywords)
	}
	if len(m.domains) > 0 {
		m.applied = append(m.applied, zpt.PanKindDomains)
	}
	if len(m.entities) > 0 {
		m.applied = append(m.applied, zpt.PanKindEntities)
	}
	if m.temporal != nil {
		m.applied = append(m.applied, zpt.PanKindTemporal)
	}
	return m
}

// appliedKinds lists the filter kinds this matcher enforces, for the
// pass record.
func (m *panMatcher) appliedKinds() []string {
	return m.applied
}

// apply converts candidates into results, boosting and filtering per the
// pan configuration. Candidates without timestamps pass the temporal
// filter (fail-open).
func (m *panMatcher) apply(cands []Candidate) []Result {
	results := make([]Result, 0, len(cands))
	for _, c := range cands {
		content := c.Prompt + " " + c.Response

		if len(m.domains) > 0 && !containsAnyDomain(content, m.domains) {
			continue
		}
		if m.temporal != nil && !c.Timestamp.IsZero() && !m.temporal.Contains(c.Timestamp) {
			continue
		}

		r := Result{Candidate: c, AdjustedSimilarity: c.Similarity}
		for _, kp := range m.keywords {
			if n := len(kp.re.FindAllStringIndex(content, -1)); n > 0 {
				r.KeywordBoost += float64(n) * m.keywordFactor
				r.MatchedKeywords = append(r.MatchedKeywords, kp.term)
			}
		}
		for _, ep := range m.entities {
			if ep.re.MatchString(content) {
				r.EntityBoost += m.entityFactor
				r.MatchedEntities = append(r.MatchedEntities, ep.term)
			}
		}
		r.AdjustedSimilarity += r.KeywordBoost + r.EntityBoost

		results = append(results, r)
	}
	return results
}

func containsAnyDomain(content string, domains []string) bool {
	lower := strings.ToLower(content)
	for _, d := range domains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
