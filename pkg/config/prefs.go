package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const prefsFile = "prefs.yaml"

// Prefs are the sticky UI selections restored across runs.
type Prefs struct {
	// Last-selected issue filters.
	IssueProduct string `yaml:"issueProduct,omitempty"`
	IssueVersion string `yaml:"issueVersion,omitempty"`
}

// LoadPrefs reads preferences from dir. A missing file is an empty Prefs,
// not an error; a corrupt file is also treated as empty so a bad write can
// never wedge startup.
func LoadPrefs(dir string) Prefs {
	data, err := os.ReadFile(filepath.Join(dir, prefsFile))
	if err != nil {
		return Prefs{}
	}
	var prefs Prefs
	if yaml.Unmarshal(data, &prefs) != nil {
		return Prefs{}
	}
	return prefs
}

// SavePrefs writes preferences under dir, creating it if needed.
func SavePrefs(dir string, prefs Prefs) error {
	if dir == "" {
		return errors.New("config: prefs dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: mkdir prefs dir: %w", err)
	}
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("config: marshal prefs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, prefsFile), data, 0o600); err != nil {
		return fmt.Errorf("config: write prefs: %w", err)
	}
	return nil
}
