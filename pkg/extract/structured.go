package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ofertas-hunter/pkg/models"
	"ofertas-hunter/pkg/price"
)

const maxTitleLen = 200

// Structured extracts offer candidates from application/ld+json Product
// blocks. Each block is parsed independently; a malformed block is counted
// and skipped without affecting the rest of the document.
func Structured(doc *goquery.Document, sourceURL string) ([]models.Candidate, Stats) {
	stats := Stats{}
	var out []models.Candidate

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			stats.add(SkipBadJSON)
			return
		}

		blocks, ok := data.([]any)
		if !ok {
			blocks = []any{data}
		}
		for _, block := range blocks {
			obj, ok := block.(map[string]any)
			if !ok || !isProduct(obj) {
				stats.add(SkipNotProduct)
				continue
			}
			c, reason := productCandidate(obj, sourceURL)
			if reason != "" {
				stats.add(reason)
				continue
			}
			out = append(out, c)
		}
	})

	return out, stats
}

// isProduct accepts @type "Product" either singular or as a one-element list.
func isProduct(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == "Product"
	case []any:
		if len(t) != 1 {
			return false
		}
		s, ok := t[0].(string)
		return ok && s == "Product"
	}
	return false
}

func productCandidate(obj map[string]any, sourceURL string) (models.Candidate, SkipReason) {
	name := strings.TrimSpace(asString(obj["name"]))
	if name == "" {
		return models.Candidate{}, SkipNoTitle
	}

	rawURL := asString(obj["url"])
	if rawURL == "" {
		rawURL = asString(obj["@id"])
	}

	offers := firstObject(obj["offers"])

	cur, curOK := asPrice(offers["price"])
	list, listOK := firstPrice(offers, "highPrice", "listPrice", "price")
	if !listOK {
		// some sites only publish the list price inside priceSpecification
		if ps := firstObject(offers["priceSpecification"]); ps != nil {
			list, listOK = asPrice(ps["price"])
		}
	}
	// the real selling price sometimes hides in lowPrice while "price" holds
	// the pre-discount value
	if low, ok := asPrice(offers["lowPrice"]); ok && (!curOK || low < cur) {
		cur, curOK = low, true
	}
	if !curOK || !listOK {
		return models.Candidate{}, SkipNoPrices
	}
	// the smaller of the two discovered prices is what the buyer pays
	if cur > list {
		cur, list = list, cur
	}

	return models.Candidate{
		Title:        truncateRunes(name, maxTitleLen),
		CurrentPrice: cur,
		ListPrice:    list,
		URL:          absoluteURL(sourceURL, rawURL),
		SourceURL:    sourceURL,
	}, ""
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asPrice reads a JSON value as a positive price, normalizing string forms.
func asPrice(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return t, true
		}
	case string:
		if p, err := price.Normalize(t); err == nil && p > 0 {
			return p, true
		}
	}
	return 0, false
}

func firstPrice(obj map[string]any, fields ...string) (float64, bool) {
	for _, f := range fields {
		if p, ok := asPrice(obj[f]); ok {
			return p, true
		}
	}
	return 0, false
}

// firstObject unwraps a value that may be an object or a list of objects.
func firstObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		if len(t) > 0 {
			if obj, ok := t[0].(map[string]any); ok {
				return obj
			}
		}
	}
	return map[string]any{}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
