package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"ofertas-hunter/pkg/models"
	"ofertas-hunter/pkg/price"
)

// HeuristicParams tunes the fallback extractor without touching its logic.
type HeuristicParams struct {
	// MaxLinkHops bounds the upward search for a link-carrying ancestor.
	MaxLinkHops int
	// PriceWindowHops is how many ancestor levels of text join the price window.
	PriceWindowHops int
	// MinTitleLen and MinTitleAlpha keep bare prices and percentages from
	// being picked as titles.
	MinTitleLen   int
	MinTitleAlpha int
	// FallbackTitleLen truncates the matched element's own text when no
	// candidate string passes the thresholds.
	FallbackTitleLen int
	// TitleSourceMax stops the upward title search once ancestor text grows
	// past this size.
	TitleSourceMax int
	// MaxMatches caps how many percentage matches are processed per document.
	MaxMatches int
}

func DefaultHeuristicParams() HeuristicParams {
	return HeuristicParams{
		MaxLinkHops:      5,
		PriceWindowHops:  2,
		MinTitleLen:      10,
		MinTitleAlpha:    5,
		FallbackTitleLen: 180,
		TitleSourceMax:   200,
		MaxMatches:       80,
	}
}

var (
	pctRe      = regexp.MustCompile(`-?\d{1,3}\s*%`)
	currencyRe = regexp.MustCompile(`(?:S/\.?|US\$|\$|€|£)\s*\d[\d.,]*`)
)

// Heuristic extracts offer candidates from visual structure: it finds
// percentage badges, resolves the product link they belong to, and mines
// nearby text for a price pair. High false-positive rate is expected; the
// discount filter cleans it up downstream.
func Heuristic(doc *goquery.Document, sourceURL string, p HeuristicParams) ([]models.Candidate, Stats) {
	stats := Stats{}
	base, err := url.Parse(sourceURL)
	if err != nil || doc == nil {
		return nil, stats
	}

	matches := pctMatches(doc, p.MaxMatches)

	seen := map[string]bool{}
	var out []models.Candidate
	for _, n := range matches {
		link := findLinkUp(n, p.MaxLinkHops)
		if link == nil {
			link = findLinkDown(n)
		}
		if link == nil {
			stats.add(SkipNoLink)
			continue
		}
		abs := resolveHref(base, attr(link, "href"))
		if abs == "" {
			stats.add(SkipNoLink)
			continue
		}

		prices := windowPrices(n, p.PriceWindowHops)
		if len(prices) == 0 {
			stats.add(SkipNoPrices)
			continue
		}

		// only an emitted candidate claims the link: a match with an empty
		// price window must leave the slot free for a wider match on the
		// same product
		if seen[abs] {
			stats.add(SkipDuplicateLink)
			continue
		}
		seen[abs] = true
		c := models.Candidate{
			Title:     inferTitle(n, p),
			URL:       abs,
			SourceURL: sourceURL,
		}
		if len(prices) >= 2 {
			c.CurrentPrice, c.ListPrice = minMax(prices)
		} else {
			// incomplete on purpose: a single price cannot prove a discount
			c.CurrentPrice = prices[0]
		}
		out = append(out, c)
	}
	return out, stats
}

// pctMatches collects elements whose direct text carries a percentage
// pattern, then elements whose aggregate text does. Precise matches come
// first so they win the per-link dedup over their containers.
func pctMatches(doc *goquery.Document, limit int) []*html.Node {
	var leaves, containers []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data != "script" && n.Data != "style" {
			if pctRe.MatchString(ownText(n)) {
				leaves = append(leaves, n)
			} else if pctRe.MatchString(fullText(n)) {
				containers = append(containers, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}

	matches := append(leaves, containers...)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// windowPrices scans the matched element's text plus a few ancestor levels
// for currency-prefixed numbers and normalizes each.
func windowPrices(n *html.Node, hops int) []float64 {
	var window strings.Builder
	window.WriteString(fullText(n))
	a := n
	for i := 0; i < hops && a.Parent != nil && a.Parent.Type == html.ElementNode; i++ {
		a = a.Parent
		window.WriteString(" ")
		window.WriteString(fullText(a))
	}

	var prices []float64
	for _, m := range currencyRe.FindAllString(window.String(), -1) {
		if v, err := price.Normalize(m); err == nil && v > 0 {
			prices = append(prices, v)
		}
	}
	return prices
}

// inferTitle picks the shortest nearby text that looks like a product name
// rather than a price or badge.
func inferTitle(n *html.Node, p HeuristicParams) string {
	cands := []string{collapse(ownText(n))}
	for a := n.Parent; a != nil && a.Type == html.ElementNode; a = a.Parent {
		t := collapse(fullText(a))
		if utf8.RuneCountInString(t) > p.TitleSourceMax {
			break
		}
		cands = append(cands, t)
	}

	best, bestLen := "", 0
	for _, t := range cands {
		// rune counts, accented text must not over-count
		rc := utf8.RuneCountInString(t)
		if rc < p.MinTitleLen || alphaCount(t) < p.MinTitleAlpha {
			continue
		}
		if best == "" || rc < bestLen {
			best, bestLen = t, rc
		}
	}
	if best == "" {
		best = truncateRunes(collapse(fullText(n)), p.FallbackTitleLen)
	}
	return best
}

// findLinkUp checks the node itself and up to maxHops ancestors for an href.
func findLinkUp(n *html.Node, maxHops int) *html.Node {
	cur := n
	for i := 0; i <= maxHops && cur != nil; i++ {
		if isLink(cur) {
			return cur
		}
		cur = cur.Parent
	}
	return nil
}

// findLinkDown returns the first descendant carrying an href, document order.
func findLinkDown(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isLink(c) {
			return c
		}
		if found := findLinkDown(c); found != nil {
			return found
		}
	}
	return nil
}

func isLink(n *html.Node) bool {
	return n.Type == html.ElementNode && attr(n, "href") != ""
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// resolveHref absolutizes a link target against the page it was found on.
func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return base.Scheme + ":" + href
	case strings.HasPrefix(href, "/"):
		return base.Scheme + "://" + base.Host + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// absoluteURL is resolveHref against a raw base; it keeps already-absolute
// URLs and returns "" when nothing can be resolved.
func absoluteURL(sourceURL, href string) string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	return resolveHref(base, href)
}

// ownText concatenates the node's direct text children only.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func fullText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func alphaCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func minMax(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
