// Package yaml reads and writes the YAML key material and config files
// consumed by the ledger and the signer tool.
package yaml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

func LoadYAML(path string, target interface{}) error {
	switch {
	case path == "":
		return errors.New("yaml path cannot be empty")
	case target == nil:
		return errors.New("target cannot be nil")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read yaml file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to unmarshal yaml file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidate is LoadYAML followed by the struct tag validator
func LoadAndValidate(path string, target interface{}) error {
	if err := LoadYAML(path, target); err != nil {
		return err
	}
	if err := NewValidator().ValidateConfig(target); err != nil {
		return fmt.Errorf("invalid yaml file %s: %w", path, err)
	}
	return nil
}

// SaveYAML writes data with 0600 permissions, creating parent directories
func SaveYAML(path string, data interface{}) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal to yaml: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, raw, 0o600)
}
