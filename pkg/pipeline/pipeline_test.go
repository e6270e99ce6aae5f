package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ofertas-hunter/pkg/config"
	"ofertas-hunter/pkg/fetch"
	"ofertas-hunter/pkg/models"
)

const heuristicPage = `<!DOCTYPE html>
<html><body>
	<a href="/p/parrilla">
		<div class="card">
			<span>60% OFF</span>
			<span>Parrilla electrica antiadherente</span>
			<span>S/ 40.00</span>
			<span>S/ 100.00</span>
		</div>
	</a>
</body></html>`

const structuredPage = `<!DOCTYPE html>
<html><head>
	<script type="application/ld+json">
	{
		"@type": "Product",
		"name": "Smart TV 55 UHD",
		"url": "/p/tv-55",
		"offers": {"price": 999.00, "highPrice": 4995.00}
	}
	</script>
</head><body>
	<a href="/p/ignored"><span>99%</span><span>S/ 1.00</span><span>S/ 100.00</span></a>
</body></html>`

func newTestPipeline(cfg config.Config) *Pipeline {
	return New(cfg, fetch.New("test-agent", 5*time.Second), zerolog.Nop())
}

func testConfig(sources ...models.Source) config.Config {
	cfg := config.Default()
	cfg.MinDiscountPct = 50
	cfg.Sources = sources
	return cfg
}

// A page without structured data falls back to the heuristic extractor; a
// 60% heuristic match above the 50% threshold yields exactly one offer.
func TestRunHeuristicFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(heuristicPage))
	}))
	defer ts.Close()

	p := newTestPipeline(testConfig(models.Source{Store: "Plaza Vea", URL: ts.URL + "/ofertas"}))
	offers := p.Run(context.Background())

	if len(offers) != 1 {
		t.Fatalf("expected exactly 1 offer, got %d", len(offers))
	}
	o := offers[0]
	if o.DiscountPct != 60 {
		t.Errorf("discount = %v, want 60", o.DiscountPct)
	}
	if o.Store != "Plaza Vea" {
		t.Errorf("store = %q, want the source identity", o.Store)
	}
	if o.URL == nil || *o.URL != ts.URL+"/p/parrilla" {
		t.Errorf("url = %v", o.URL)
	}
}

// When structured data yields candidates the heuristic tier must not run.
func TestRunStructuredWinsOverHeuristic(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(structuredPage))
	}))
	defer ts.Close()

	p := newTestPipeline(testConfig(models.Source{Store: "Ripley", URL: ts.URL + "/ofertas"}))
	offers := p.Run(context.Background())

	if len(offers) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(offers))
	}
	if offers[0].Title != "Smart TV 55 UHD" {
		t.Errorf("title = %q, want the structured-data product", offers[0].Title)
	}
	if offers[0].DiscountPct != 80 {
		t.Errorf("discount = %v, want 80", offers[0].DiscountPct)
	}
}

// A source that falls back to the heuristic tier still reports the structured
// tier's skip counts alongside the heuristic ones.
func TestRunFallbackKeepsStructuredSkips(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head>
	<script type="application/ld+json">{not json</script>
</head><body>
	<a href="/p/parrilla">
		<div class="card">
			<span>60% OFF</span>
			<span>Parrilla electrica antiadherente</span>
			<span>S/ 40.00</span>
			<span>S/ 100.00</span>
		</div>
	</a>
</body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	cfg := testConfig(models.Source{Store: "Falabella", URL: ts.URL + "/ofertas"})
	p := New(cfg, fetch.New("test-agent", 5*time.Second), zerolog.New(&buf))
	offers := p.Run(context.Background())

	if len(offers) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(offers))
	}
	log := buf.String()
	if !strings.Contains(log, `"tier":"heuristic"`) {
		t.Fatalf("expected a heuristic-tier source event, log: %s", log)
	}
	if !strings.Contains(log, `"bad_json":1`) {
		t.Errorf("structured skip counts lost in fallback, log: %s", log)
	}
	if !strings.Contains(log, `"duplicate_link"`) {
		t.Errorf("expected heuristic skip counts in the same event, log: %s", log)
	}
}

// A failing source contributes nothing but never aborts the run.
func TestRunSourceFailureIsIsolated(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(heuristicPage))
	}))
	defer ts.Close()

	p := newTestPipeline(testConfig(
		models.Source{Store: "Wong", URL: ts.URL + "/down"},
		models.Source{Store: "Oechsle", URL: ts.URL + "/ofertas"},
	))
	offers := p.Run(context.Background())

	if len(offers) != 1 {
		t.Fatalf("expected 1 offer from the healthy source, got %d", len(offers))
	}
	if offers[0].Store != "Oechsle" {
		t.Errorf("store = %q, want Oechsle", offers[0].Store)
	}
}

// Identical offers found on two sources collapse to one, first source wins.
func TestRunMergeDedups(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(heuristicPage))
	}))
	defer ts.Close()

	p := newTestPipeline(testConfig(
		models.Source{Store: "Wong", URL: ts.URL + "/ofertas"},
		models.Source{Store: "Ripley", URL: ts.URL + "/ofertas"},
	))
	offers := p.Run(context.Background())

	if len(offers) != 1 {
		t.Fatalf("expected 1 offer after dedup, got %d", len(offers))
	}
	if offers[0].Store != "Wong" {
		t.Errorf("store = %q, want the first source to win", offers[0].Store)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(testConfig(models.Source{Store: "Tottus", URL: "http://127.0.0.1:1/unreachable"}))
	offers := p.Run(ctx)

	if len(offers) != 0 {
		t.Fatalf("expected no offers from a cancelled run, got %d", len(offers))
	}
}
