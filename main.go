package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/rs/zerolog"

	"ofertas-hunter/pkg/api"
	"ofertas-hunter/pkg/cache"
	"ofertas-hunter/pkg/config"
	"ofertas-hunter/pkg/fetch"
	"ofertas-hunter/pkg/logger"
	"ofertas-hunter/pkg/output"
	"ofertas-hunter/pkg/pipeline"
)

var offerCache *cache.Cache

func main() {
	var (
		cfgPath    string
		minPct     float64
		topN       int
		timeout    time.Duration
		outPath    string
		runTimeout time.Duration
		serve      bool
		port       string
		verbose    bool
	)

	flag.StringVar(&cfgPath, "config", "", "path to YAML config with sources and thresholds")
	flag.Float64Var(&minPct, "min", -1, "minimum discount percentage (overrides config)")
	flag.IntVar(&topN, "top", 0, "keep only the N best offers (overrides config)")
	flag.DurationVar(&timeout, "timeout", 0, "per-source fetch timeout (overrides config)")
	flag.StringVar(&outPath, "out", "", "output JSON path (overrides config)")
	flag.DurationVar(&runTimeout, "run.timeout", 0, "overall run deadline; 0 disables")
	flag.BoolVar(&serve, "serve", false, "serve the latest cached run over HTTP instead of hunting")
	flag.StringVar(&port, "port", "9090", "HTTP port for -serve")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	logg := logger.Setup(verbose)

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logg.Fatal().Err(err).Msg("invalid config")
		}
	}
	if minPct >= 0 {
		cfg.MinDiscountPct = minPct
	}
	if topN > 0 {
		cfg.TopN = topN
	}
	if timeout > 0 {
		cfg.PerSourceTimeout = timeout
	}
	if outPath != "" {
		cfg.OutputPath = outPath
	}
	if err := cfg.Validate(); err != nil {
		logg.Fatal().Err(err).Msg("invalid config")
	}

	dbPath := os.Getenv("CACHE_DB_PATH")
	if dbPath == "" {
		dbPath = "./cache.db"
	}
	ttlMinutes := 1440
	if val := os.Getenv("CACHE_TTL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			ttlMinutes = parsed
		}
	}

	var err error
	offerCache, err = cache.New(dbPath, time.Duration(ttlMinutes)*time.Minute)
	if err != nil {
		if serve {
			logg.Fatal().Err(err).Msg("failed to initialize cache")
		}
		logg.Warn().Err(err).Msg("cache unavailable, run will not be persisted")
	} else {
		defer offerCache.Close()
		logg.Debug().Str("path", dbPath).Int("ttl_minutes", ttlMinutes).Msg("cache initialized")
	}

	if serve {
		runServe(port, logg)
		return
	}
	runHunt(cfg, runTimeout, logg)
}

func runHunt(cfg config.Config, runTimeout time.Duration, logg zerolog.Logger) {
	ctx := context.Background()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	logg.Info().
		Float64("min_pct", cfg.MinDiscountPct).
		Int("sources", len(cfg.Sources)).
		Msg("hunting offers")

	p := pipeline.New(cfg, fetch.New(cfg.UserAgent, cfg.PerSourceTimeout), logg)
	offers := p.Run(ctx)

	if err := output.Save(cfg.OutputPath, offers); err != nil {
		logg.Fatal().Err(err).Msg("failed to write output")
	}
	if offerCache != nil {
		if err := offerCache.SaveRun(offers); err != nil {
			logg.Warn().Err(err).Msg("failed to cache run")
		}
	}

	logg.Info().Int("offers", len(offers)).Str("path", cfg.OutputPath).Msg("saved offers")
}

func runServe(port string, logg zerolog.Logger) {
	http.HandleFunc("/", rootHandler)

	ip := GetOutboundIP()
	if ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), port)
	}
	fmt.Printf("Access URL: http://localhost:%s\n", port)
	fmt.Printf("API Docs: http://localhost:%s/\n", port)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           nil,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logg.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/offers" {
		offersHandler(w, r)
		return
	}
	if r.URL.Path != "/" {
		api.WriteNotFound(w, "Unknown path. Available: /offers", r.URL.Path)
		return
	}

	// Serve Scalar docs on root path
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Ofertas Hunter API"),
		),
	)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func offersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w, "Use GET for offers.", r.URL.Path)
		return
	}
	if offerCache == nil {
		api.WriteServiceUnavailable(w, "Offer cache is not available.", r.URL.Path)
		return
	}

	offers, ok := offerCache.LatestRun()
	if !ok {
		api.WriteServiceUnavailable(w, "No completed hunt in cache. Run the hunter first.", r.URL.Path)
		return
	}
	logger.Dedup("serving cached run (%d offers)", len(offers))

	for key := range r.URL.Query() {
		if key != "store" {
			api.WriteBadRequest(w, "Unsupported query parameter: "+key+". Available: store", r.URL.Path)
			return
		}
	}
	if store := r.URL.Query().Get("store"); store != "" {
		filtered := offers[:0:0]
		for _, o := range offers {
			if strings.EqualFold(o.Store, store) {
				filtered = append(filtered, o)
			}
		}
		offers = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(offers); err != nil {
		logger.Dedup("error encoding response: %v", err)
	}
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
