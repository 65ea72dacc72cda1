package catalog

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// SearchResult holds a search result with relevance score.
type SearchResult struct {
	Code      int32  `json:"code"`
	Name      string `json:"name"`
	ItemType  string `json:"item_type"`
	Craftable bool   `json:"craftable"`
	relevance int    // 0 = exact, 1 = starts with, 2 = contains, 3 = typo-near
	distance  int
}

// fuzzyLimit is the largest edit distance accepted for a name of the given length.
func fuzzyLimit(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	default:
		return 2
	}
}

// Search returns items whose name matches query.
// Results are sorted by relevance: exact match > starts with > contains > close typo.
func (c *Catalog) Search(query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []SearchResult{}
	}

	var results []SearchResult
	for _, code := range c.codes {
		it := c.items[code]
		name := strings.ToLower(it.Name)
		if name == "" {
			continue
		}

		var relevance, dist int
		switch {
		case name == q:
			relevance = 0
		case strings.HasPrefix(name, q):
			relevance = 1
		case strings.Contains(name, q):
			relevance = 2
		default:
			dist = levenshtein.ComputeDistance(q, name)
			if dist == 0 || dist > fuzzyLimit(len(name)) {
				continue
			}
			relevance = 3
		}

		results = append(results, SearchResult{
			Code:      it.Code,
			Name:      it.Name,
			ItemType:  it.ItemType,
			Craftable: !it.IsBase(),
			relevance: relevance,
			distance:  dist,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].relevance != results[j].relevance {
			return results[i].relevance < results[j].relevance
		}
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].Name < results[j].Name
	})

	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		return []SearchResult{}
	}
	return results
}
