// Package export writes the reconciliation result bundle to disk as JSON,
// one file per facet plus the cross-facet reports.
package export

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"od-flow-audit/analysis"
)

// Exporter writes run results under a target directory
type Exporter struct {
	dir string
}

// NewExporter creates an exporter rooted at dir
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// WriteResult writes the full bundle: facet files, transit, labels, balance,
// anomalies, basic stats and the combined result. Returns the written paths.
func (e *Exporter) WriteResult(result *analysis.Result) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir %s: %w", e.dir, err)
	}

	var written []string
	write := func(name string, v interface{}) error {
		path := filepath.Join(e.dir, name)
		if err := writeJSON(path, v); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	for _, facet := range analysis.Facets {
		fr, ok := result.Facets[facet]
		if !ok {
			continue
		}
		if err := write(fmt.Sprintf("facet_%s.json", facet), fr); err != nil {
			return written, err
		}
	}

	files := []struct {
		name string
		v    interface{}
	}{
		{"basic_stats.json", result.Basic},
		{"anomalies.json", result.Anomalies},
		{"transit_estimates.json", result.Transit},
		{"transit_summary.json", result.TransitSummary},
		{"function_labels.json", result.Labels},
		{"square_balance.json", result.Balance},
		{"result.json", result},
	}
	for _, f := range files {
		if err := write(f.name, f.v); err != nil {
			return written, err
		}
	}

	log.Printf("✅ Exported %d files to %s", len(written), e.dir)
	return written, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
