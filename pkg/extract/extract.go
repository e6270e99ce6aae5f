package extract

// SkipReason classifies why a scanned block or match yielded no candidate.
// Extraction never aborts on a bad input; it counts it and moves on.
type SkipReason string

const (
	SkipBadJSON       SkipReason = "bad_json"
	SkipNotProduct    SkipReason = "not_product"
	SkipNoTitle       SkipReason = "no_title"
	SkipNoPrices      SkipReason = "no_prices"
	SkipNoLink        SkipReason = "no_link"
	SkipDuplicateLink SkipReason = "duplicate_link"
)

// Stats aggregates skips per reason for one extraction pass.
type Stats map[SkipReason]int

func (s Stats) add(r SkipReason) {
	s[r]++
}

// Merge folds another pass's counts into s, so a source that ran both
// extraction tiers reports the skips of both.
func (s Stats) Merge(other Stats) {
	for r, n := range other {
		s[r] += n
	}
}

// Total returns the number of skipped inputs across all reasons.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}
