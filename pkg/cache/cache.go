package cache

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"ofertas-hunter/pkg/models"
)

// Cache persists the latest completed run so the serve mode can answer
// without re-scraping. A single row holds the whole ranked offer set; a run
// older than the TTL is treated as absent.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL,
			saved_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// SaveRun replaces the cached run with the given ranked offers.
func (c *Cache) SaveRun(offers []models.Offer) error {
	if offers == nil {
		offers = []models.Offer{}
	}
	data, err := json.Marshal(offers)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(
		`INSERT INTO runs (id, data, saved_at)
		 VALUES (1, ?, ?)
		 ON CONFLICT(id)
		 DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		string(data), time.Now(),
	)
	return err
}

// LatestRun returns the cached offers, or false when there is no fresh run.
func (c *Cache) LatestRun() ([]models.Offer, bool) {
	var data string
	var savedAt time.Time

	err := c.db.QueryRow(`SELECT data, saved_at FROM runs WHERE id = 1`).
		Scan(&data, &savedAt)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(savedAt) > c.ttl {
		return nil, false
	}

	var offers []models.Offer
	if err := json.Unmarshal([]byte(data), &offers); err != nil {
		log.Warn().Err(err).Msg("cache: failed to unmarshal cached run")
		return nil, false
	}
	return offers, true
}

func (c *Cache) Close() error {
	return c.db.Close()
}
