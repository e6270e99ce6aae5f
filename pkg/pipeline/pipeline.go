package pipeline

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"ofertas-hunter/pkg/config"
	"ofertas-hunter/pkg/deals"
	"ofertas-hunter/pkg/extract"
	"ofertas-hunter/pkg/models"
)

// Fetcher turns a source URL into a parsed document.
type Fetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// Pipeline runs the whole hunt: fetch each source, extract candidates
// (structured data first, heuristics as fallback), filter by discount, then
// dedup and rank the merged set once.
type Pipeline struct {
	cfg        config.Config
	fetcher    Fetcher
	log        zerolog.Logger
	Heuristics extract.HeuristicParams
}

func New(cfg config.Config, fetcher Fetcher, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		log:        log,
		Heuristics: extract.DefaultHeuristicParams(),
	}
}

// Run visits every configured source through a bounded worker pool and
// returns the ranked offer set. Source failures are logged and skipped; the
// merge happens only after all workers finish so ranking sees the full set.
// Per-source results are merged in source order, keeping tie placement
// deterministic.
func (p *Pipeline) Run(ctx context.Context) []models.Offer {
	workers := p.cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	perSource := make([][]models.Offer, len(p.cfg.Sources))
	var wg sync.WaitGroup

	for i, src := range p.cfg.Sources {
		if ctx.Err() != nil {
			p.log.Warn().Err(ctx.Err()).Str("store", src.Store).Msg("run cancelled, skipping remaining sources")
			break
		}
		wg.Add(1)
		go func(i int, src models.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perSource[i] = p.huntSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	var all []models.Offer
	for _, offers := range perSource {
		all = append(all, offers...)
	}
	return deals.Finalize(all, p.cfg.TopN)
}

func (p *Pipeline) huntSource(ctx context.Context, src models.Source) []models.Offer {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PerSourceTimeout)
	defer cancel()

	doc, err := p.fetcher.Document(ctx, src.URL)
	if err != nil {
		p.log.Warn().Str("store", src.Store).Err(err).Msg("source failed")
		return nil
	}

	cands, stats := extract.Structured(doc, src.URL)
	tier := "structured"
	if len(cands) == 0 {
		var hstats extract.Stats
		cands, hstats = extract.Heuristic(doc, src.URL, p.Heuristics)
		stats.Merge(hstats)
		tier = "heuristic"
	}

	var offers []models.Offer
	rejected := 0
	for _, c := range cands {
		c.Store = src.Store
		o, ok := deals.Apply(c, p.cfg.MinDiscountPct)
		if !ok {
			rejected++
			continue
		}
		offers = append(offers, o)
	}

	skips := zerolog.Dict()
	for reason, n := range stats {
		skips.Int(string(reason), n)
	}
	p.log.Info().
		Str("store", src.Store).
		Str("tier", tier).
		Int("candidates", len(cands)).
		Int("rejected", rejected).
		Int("offers", len(offers)).
		Dict("skipped", skips).
		Msg("source done")

	return offers
}
