// Package history keeps a JSON log of produced collages. It records where
// exports landed, not the collages themselves; boards are not reloadable.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"covergrid/internal/catalog"
)

// Record describes one successful export.
type Record struct {
	Title      string       `json:"title"`
	Path       string       `json:"path"`
	Format     string       `json:"format"`
	Kind       catalog.Kind `json:"kind"`
	Slots      int          `json:"slots"`
	ExportedAt time.Time    `json:"exportedAt"`
}

// Append adds a record to the log file, creating it if necessary.
func Append(path string, record Record) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		records = nil
	}
	records = append(records, record)
	return write(path, records)
}

// Load returns all recorded exports, oldest first.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Recent returns up to n of the newest records, newest first.
func Recent(path string, n int) []Record {
	records, err := Load(path)
	if err != nil || len(records) == 0 {
		return nil
	}
	if n > len(records) {
		n = len(records)
	}
	recent := make([]Record, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		recent = append(recent, records[i])
	}
	return recent
}

func write(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
