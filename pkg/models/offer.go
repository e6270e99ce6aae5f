package models

import "errors"

var ErrFetchFailed = errors.New("fetch failed")

// Source is one store page the pipeline visits.
type Source struct {
	Store string `yaml:"store"`
	URL   string `yaml:"url"`
}

// Candidate is an unvalidated extraction. Prices are zero when the extractor
// could not resolve them; a candidate missing either price never becomes an
// Offer.
type Candidate struct {
	Title        string
	CurrentPrice float64
	ListPrice    float64
	URL          string
	SourceURL    string
	Store        string
}

// Complete reports whether both prices were resolved.
func (c Candidate) Complete() bool {
	return c.CurrentPrice > 0 && c.ListPrice > 0
}

// Offer is a validated discount that met the configured threshold.
type Offer struct {
	Title        string  `json:"title"`
	CurrentPrice float64 `json:"current_price"`
	OldPrice     float64 `json:"old_price"`
	DiscountPct  float64 `json:"discount_pct"`
	Store        string  `json:"store"`
	URL          *string `json:"url"`
}
