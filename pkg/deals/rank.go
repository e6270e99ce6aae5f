package deals

import (
	"sort"

	"ofertas-hunter/pkg/models"
)

type identity struct {
	title   string
	url     string
	current float64
	list    float64
}

// Finalize merges offers from all sources: exact duplicates are dropped
// (first occurrence wins), the rest are sorted by discount descending and
// truncated to topN. The sort is stable so ties keep source order.
func Finalize(offers []models.Offer, topN int) []models.Offer {
	seen := make(map[identity]bool, len(offers))
	out := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		k := identity{title: o.Title, current: o.CurrentPrice, list: o.OldPrice}
		if o.URL != nil {
			k.url = *o.URL
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DiscountPct > out[j].DiscountPct
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
