package aggregate

import (
	"sort"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/match"
)

// Merge folds candidate lists into one list with a single entry per normalized
// name. The merged confidence is the maximum seen, issues are unioned and
// evidence from later sources is appended. The result is sorted by descending
// confidence; ties keep first-encounter order.
func Merge(lists ...[]candidate.Candidate) []candidate.Candidate {
	index := make(map[string]int)
	var out []candidate.Candidate

	for _, list := range lists {
		for _, c := range list {
			key := match.NameKey(c.Name)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				c.Issues = c.Issues.Union(nil)
				c.Evidence = candidate.Excerpt(c.Evidence)
				index[key] = len(out)
				out = append(out, c)
				continue
			}

			existing := &out[i]
			if c.Confidence > existing.Confidence {
				existing.Confidence = c.Confidence
				existing.Source = c.Source
				if c.LinkedInURL != "" {
					existing.LinkedInURL = c.LinkedInURL
				}
			}
			if existing.LinkedInURL == "" {
				existing.LinkedInURL = c.LinkedInURL
			}
			existing.Issues = existing.Issues.Union(c.Issues)
			existing.Evidence = candidate.AppendEvidence(existing.Evidence, c.Source, candidate.Excerpt(c.Evidence))
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Confidence > out[b].Confidence
	})
	return out
}
