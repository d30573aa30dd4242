package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"supplier-ranking/internal/models"
)

// Fixtures is the on-disk seed format of the CLI's --memory mode.
type Fixtures struct {
	Suppliers      []models.Supplier             `json:"suppliers"`
	Submissions    []models.PriceSubmission      `json:"submissions"`
	Orders         []models.OrderRecord          `json:"orders"`
	Configurations []models.RankingConfiguration `json:"configurations"`
	Snapshots      []models.ScoreSnapshot        `json:"snapshots"`
}

// Load seeds the store from a JSON fixtures document.
func (s *Store) Load(r io.Reader) error {
	var f Fixtures
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, o := range f.Orders {
		if !o.Status.Valid() {
			return fmt.Errorf("order %s: unknown status %q", o.ID, o.Status)
		}
	}

	s.AddSuppliers(f.Suppliers...)
	s.AddSubmissions(f.Submissions...)
	s.AddOrders(f.Orders...)
	for _, cfg := range f.Configurations {
		s.PutConfiguration(cfg)
	}
	for _, snap := range f.Snapshots {
		s.PutSnapshot(snap)
	}
	return nil
}

func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return s.Load(f)
}
