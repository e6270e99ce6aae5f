package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ofertas-hunter/pkg/models"
)

// Save writes the offers as an indented JSON array. The file is written to a
// temp sibling first and renamed into place so readers never see a partial
// run. An empty run still produces "[]".
func Save(path string, offers []models.Offer) error {
	if offers == nil {
		offers = []models.Offer{}
	}
	data, err := json.MarshalIndent(offers, "", "  ")
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".offers-*.json")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
