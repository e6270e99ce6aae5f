package deals

import (
	"strings"

	"ofertas-hunter/pkg/models"
	"ofertas-hunter/pkg/price"
)

const maxTitleLen = 200

// Apply validates a candidate against the minimum discount threshold and
// promotes it to an Offer. Incomplete or inverted price pairs and
// sub-threshold discounts are normal outcomes, not errors.
func Apply(c models.Candidate, minPct float64) (models.Offer, bool) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return models.Offer{}, false
	}
	if c.CurrentPrice <= 0 || c.ListPrice <= 0 || c.CurrentPrice >= c.ListPrice {
		return models.Offer{}, false
	}

	pct := price.PctOff(c.ListPrice, c.CurrentPrice)
	if pct < minPct {
		return models.Offer{}, false
	}

	o := models.Offer{
		Title:        truncateRunes(title, maxTitleLen),
		CurrentPrice: price.Round2(c.CurrentPrice),
		OldPrice:     price.Round2(c.ListPrice),
		DiscountPct:  pct,
		Store:        c.Store,
	}
	if c.URL != "" {
		u := c.URL
		o.URL = &u
	}
	return o, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
