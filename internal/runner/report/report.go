// Package report writes the outcome of a run to disk as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bakkerme/jobwatch/internal/core"
)

// Save replaces the file at path with the run report. The report is written
// to a temporary file first so readers never see a partial document.
func Save(path string, run *core.Run) error {
	if path == "" {
		return fmt.Errorf("report path is required")
	}
	if run == nil {
		return fmt.Errorf("run is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

func Load(path string) (*core.Run, error) {
	if path == "" {
		return nil, fmt.Errorf("report path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var run core.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &run, nil
}
