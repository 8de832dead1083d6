package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"gopkg.in/yaml.v3"
)

// Save writes params describing a backend to path. The format follows the
// extension: .json, or .yaml/.yml. Parent directories are created.
func Save(path string, params map[string]any) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(params, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(params)
	default:
		return fmt.Errorf("%w: %s must end in .json, .yaml or .yml", errorskg.ErrInvalidInput, path)
	}
	if err != nil {
		return fmt.Errorf("encode llm params: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write llm params: %w", err)
	}
	return nil
}
