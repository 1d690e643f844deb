package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// Store persists the history as a single indented JSON document.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore wires a history file path into a Store.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{path: path, logger: logger.With().Str("component", "history_store").Logger()}
}

// Load reads the persisted history. A missing or malformed file is treated
// as an empty history so a corrupted write never blocks the next run.
func (s *Store) Load() []market.Record {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("unable to read history; starting empty")
		}
		return nil
	}

	var records []market.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("malformed history; starting empty")
		return nil
	}
	return records
}

// Save rewrites the history file. The document is written to a temporary
// file first and renamed into place so readers never observe a partial write.
func (s *Store) Save(records []market.Record) error {
	if records == nil {
		records = []market.Record{}
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	raw = append(raw, '\n')

	if err := writeFileAtomic(s.path, raw); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
