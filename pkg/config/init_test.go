package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# dittohttp Configuration File",
		"logging:",
		"server:",
		"counters:",
		"adapters:",
	}

	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfigToPath_ForceOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := InitConfigToPath(configPath, false); err == nil {
		t.Fatal("Expected error without force")
	}

	if err := InitConfigToPath(configPath, true); err != nil {
		t.Fatalf("Force InitConfigToPath failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if string(content) == "existing" {
		t.Error("File was not overwritten")
	}
}

func TestGenerateYAMLWithComments_ValidConfig(t *testing.T) {
	out, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		t.Fatalf("generateYAMLWithComments failed: %v", err)
	}

	if !strings.Contains(out, "#") {
		t.Error("Generated YAML should contain comments")
	}

	for _, want := range []string{"INFO", "8080", "simulated_delay: 1s", "mode: pool", "type: memory"} {
		if !strings.Contains(out, want) {
			t.Errorf("Generated YAML should contain %q", want)
		}
	}
}

func TestGeneratedConfigValuesAreCorrect(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("Failed to generate config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected INFO log level in generated config, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080 in generated config, got %d", cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.SimulatedDelay != time.Second {
		t.Errorf("Expected simulated_delay 1s in generated config, got %v", cfg.Adapters.HTTP.SimulatedDelay)
	}
	if cfg.Adapters.HTTP.RateWindow != time.Second {
		t.Errorf("Expected rate_window 1s in generated config, got %v", cfg.Adapters.HTTP.RateWindow)
	}
	if cfg.Counters.Badger["db_path"] != "/tmp/dittohttp-counters" {
		t.Errorf("Expected badger db_path in generated config, got %v", cfg.Counters.Badger["db_path"])
	}
}
