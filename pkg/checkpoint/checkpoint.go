// pkg/checkpoint/checkpoint.go
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pingprobe/internal/models"
)

// SaveState marshals the remaining sweep targets to a JSON file. The file is
// written to a temporary name first and renamed, so an interrupted save
// never leaves a truncated checkpoint behind.
func SaveState(targets []models.SweepTarget, filePath string) error {
	if targets == nil {
		targets = []models.SweepTarget{}
	}
	data, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp.Name(), filePath)
}

// LoadState unmarshals sweep targets from a JSON file.
func LoadState(filePath string) ([]models.SweepTarget, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var targets []models.SweepTarget
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", filePath, err)
	}
	return targets, nil
}
