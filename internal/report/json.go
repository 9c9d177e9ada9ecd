package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrWong99/revisa/internal/revision"
)

// JSONReport is the persisted corrections report of one run.
type JSONReport struct {
	RunID          string            `json:"run_id"`
	Document       string            `json:"document"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Summary        Summary           `json:"summary"`
	AllCorrections []revision.Record `json:"all_corrections"`
}

// NewJSONReport assembles the report for records in discovery order.
func NewJSONReport(runID, document string, records []revision.Record, errorsFound int) JSONReport {
	if records == nil {
		records = []revision.Record{}
	}
	return JSONReport{
		RunID:          runID,
		Document:       document,
		GeneratedAt:    time.Now().UTC(),
		Summary:        Summarize(records, errorsFound),
		AllCorrections: records,
	}
}

// WriteJSON writes r as indented UTF-8 JSON to path, creating parent
// directories as needed.
func WriteJSON(path string, r JSONReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create dir for %q: %w", path, err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode %q: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %q: %w", path, err)
	}
	return nil
}

// ReadJSON loads a report written by [WriteJSON].
func ReadJSON(path string) (JSONReport, error) {
	var r JSONReport
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("report: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("report: decode %q: %w", path, err)
	}
	return r, nil
}
