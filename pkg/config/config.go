package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ofertas-hunter/pkg/models"
)

// Config is the full pipeline configuration with explicit defaults.
type Config struct {
	MinDiscountPct   float64
	TopN             int
	PerSourceTimeout time.Duration
	MaxWorkers       int
	OutputPath       string
	UserAgent        string
	Sources          []models.Source
}

// fileConfig is the YAML schema; absent fields keep their defaults and the
// timeout is given in "25s" form.
type fileConfig struct {
	MinDiscountPct   *float64        `yaml:"minDiscountPct"`
	TopN             *int            `yaml:"topN"`
	PerSourceTimeout string          `yaml:"perSourceTimeout"`
	MaxWorkers       *int            `yaml:"maxWorkers"`
	OutputPath       string          `yaml:"outputPath"`
	UserAgent        string          `yaml:"userAgent"`
	Sources          []models.Source `yaml:"sources"`
}

// Default targets the Peruvian retail deployment: only offers discounted by
// 80% or more survive, keeping the 50 best.
func Default() Config {
	return Config{
		MinDiscountPct:   80,
		TopN:             50,
		PerSourceTimeout: 25 * time.Second,
		MaxWorkers:       3,
		OutputPath:       "offers.json",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		Sources: []models.Source{
			{Store: "Plaza Vea", URL: "https://www.plazavea.com.pe/busca?ft=oferta"},
			{Store: "Wong", URL: "https://www.wong.pe/busca?ft=oferta"},
			{Store: "Oechsle", URL: "https://www.oechsle.pe/busca?ft=oferta"},
			{Store: "Ripley", URL: "https://simple.ripley.com.pe/tecno/ofertas"},
			{Store: "Falabella", URL: "https://www.falabella.com.pe/falabella-pe/page/ofertas"},
			{Store: "Tottus", URL: "https://www.tottus.com.pe/tottus-pe/page/ofertas"},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.MinDiscountPct != nil {
		cfg.MinDiscountPct = *fc.MinDiscountPct
	}
	if fc.TopN != nil {
		cfg.TopN = *fc.TopN
	}
	if fc.PerSourceTimeout != "" {
		d, err := time.ParseDuration(fc.PerSourceTimeout)
		if err != nil {
			return cfg, fmt.Errorf("perSourceTimeout: %w", err)
		}
		cfg.PerSourceTimeout = d
	}
	if fc.MaxWorkers != nil {
		cfg.MaxWorkers = *fc.MaxWorkers
	}
	if fc.OutputPath != "" {
		cfg.OutputPath = fc.OutputPath
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.Sources != nil {
		cfg.Sources = fc.Sources
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MinDiscountPct < 0 || c.MinDiscountPct > 100 {
		return fmt.Errorf("minDiscountPct must be within [0,100], got %v", c.MinDiscountPct)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("topN must be positive, got %d", c.TopN)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("outputPath must not be empty")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for i, s := range c.Sources {
		if s.Store == "" || s.URL == "" {
			return fmt.Errorf("source %d: store and url are required", i)
		}
	}
	return nil
}
