package catalog

import (
	"sort"

	"github.com/sebiscope/sebiscope/pkg/matching"
)

// maxAlternatives is how many "did you mean" suggestions a NotFound
// result carries.
const maxAlternatives = 5

// Alternative is a near-miss surfaced to the user when nothing qualified.
type Alternative struct {
	Title   string           `json:"title"`
	Score   float64          `json:"score"`
	DocType matching.DocType `json:"doc_type"`
	URL     string           `json:"url"`
}

// ResolutionResult is the outcome of one resolution attempt. Found is
// true only when Match is an RHP/DRHP whose score clears the query's
// minimum; otherwise Alternatives lists the closest titles across all
// document types.
type ResolutionResult struct {
	Query        string        `json:"query"`
	Found        bool          `json:"found"`
	Match        *Candidate    `json:"match,omitempty"`
	PagesScanned int           `json:"pages_scanned"`
	UniqueTitles int           `json:"unique_titles"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Select picks the best eligible candidate. Ranking is document-type
// priority first (RHP over DRHP), then score. Corrigenda, addenda and
// unclassified entries are excluded outright; they describe amendments to
// a filing, not the filing itself, and selecting one silently corrupts
// everything downstream.
func Select(candidates []Candidate, q MatchQuery, pagesScanned int) ResolutionResult {
	result := ResolutionResult{
		Query:        q.RawName,
		PagesScanned: pagesScanned,
		UniqueTitles: len(candidates),
	}

	var eligible []Candidate
	for _, c := range candidates {
		if c.DocType.Eligible() && c.Score >= q.MinScore {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) > 0 {
		sort.SliceStable(eligible, func(i, j int) bool {
			if eligible[i].DocType.Priority() != eligible[j].DocType.Priority() {
				return eligible[i].DocType.Priority() > eligible[j].DocType.Priority()
			}
			return eligible[i].Score > eligible[j].Score
		})
		best := eligible[0]
		result.Found = true
		result.Match = &best
		return result
	}

	// Nothing qualified: surface the top titles across ALL types so the
	// caller can present "did you mean" suggestions.
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i, c := range ranked {
		if i >= maxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, Alternative{
			Title:   c.RawTitle,
			Score:   c.Score,
			DocType: c.DocType,
			URL:     c.LandingURL,
		})
	}

	return result
}
