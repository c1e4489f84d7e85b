package search

import "strings"

// Indicator word lists for query type detection. Matching is
// case-insensitive substring containment; the personal forms keep their
// trailing space so "i " does not fire on words like "universal".
var (
	questionIndicators = []string{"what", "how", "why", "when", "where", "who", "which"}
	personalIndicators = []string{"i ", "my ", "me ", "myself", "personal", "experience", "feel", "think"}
	factualIndicators  = []string{"definition", "explain", "technical", "scientific", "research", "study"}
)

// Query length bands for complexity classification, in bytes.
const (
	simpleQueryMaxLen  = 20
	complexQueryMinLen = 100
)

// AnalyzeQuery derives the feature set for one query. It is pure:
// identical input always yields identical output. Empty input comes back
// simple/general with zero counts.
func AnalyzeQuery(query string) QueryAnalysis {
	lower := strings.ToLower(query)
	words := strings.Fields(lower)

	a := QueryAnalysis{
		Length:         len(query),
		WordCount:      len(words),
		QuestionWords:  countOccurrences(lower, questionIndicators),
		PersonalWords:  countOccurrences(lower, personalIndicators),
		TechnicalWords: countOccurrences(lower, factualIndicators),
	}

	switch {
	case a.Length < simpleQueryMaxLen:
		a.Complexity = ComplexitySimple
	case a.Length > complexQueryMinLen:
		a.Complexity = ComplexityComplex
	default:
		a.Complexity = ComplexityMedium
	}

	// Later checks override earlier ones: question < personal < factual.
	a.Type = TypeGeneral
	if a.QuestionWords >= 1 {
		a.Type = TypeQuestion
	}
	if a.PersonalWords > 2 {
		a.Type = TypePersonal
	}
	if a.TechnicalWords >= 1 {
		a.Type = TypeFactual
	}

	a.SemanticDensity = uniqueWordRatio(words)
	return a
}

func countOccurrences(lower string, terms []string) int {
	total := 0
	for _, t := range terms {
		total += strings.Count(lower, t)
	}
	return total
}

// uniqueWordRatio is the distinct-token count over the total token count,
// guarded against empty input.
func uniqueWordRatio(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}
