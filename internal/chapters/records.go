package chapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/history"
)

// Record is the persisted output of a chapter.
type Record struct {
	Number   int                 `json:"number"`
	Title    string              `json:"title"`
	Text     string              `json:"text,omitempty"`
	Summary  string              `json:"summary,omitempty"`
	Glossary domain.GlossaryList `json:"glossary,omitempty"`
	Prompt   []history.Message   `json:"prompt,omitempty"`
}

// Records stores one JSON file per chapter under a directory.
type Records struct {
	dir string
}

// NewRecords creates a record store in dir.
func NewRecords(dir string) *Records {
	return &Records{dir: dir}
}

func (r *Records) Dir() string {
	return r.dir
}

func (r *Records) path(number int) string {
	return filepath.Join(r.dir, fmt.Sprintf("%04d.json", number))
}

// Load returns the record of chapter number, or an empty record if none was written yet.
func (r *Records) Load(number int) (Record, error) {
	data, err := os.ReadFile(r.path(number))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{Number: number}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record %d: %w", number, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode record %d: %w", number, err)
	}
	return rec, nil
}

// Save writes rec atomically.
func (r *Records) Save(rec Record) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %d: %w", rec.Number, err)
	}
	tmp, err := os.CreateTemp(r.dir, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record %d: %w", rec.Number, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record %d: %w", rec.Number, err)
	}
	return os.Rename(tmp.Name(), r.path(rec.Number))
}
