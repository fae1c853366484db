package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SCRIBE_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${SCRIBE_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Port != 9000 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "name: x\nport: 0\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Port != 8080 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadOptional_OverridesDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	path := writeFile(t, "port: 9090\n")
	if err := LoadOptional(path, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Port != 9090 {
		t.Errorf("loaded = %+v", s)
	}
}
