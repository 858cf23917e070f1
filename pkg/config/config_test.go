package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearAIEnv removes AI credentials that may leak in from the developer shell.
func clearAIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_API_KEY",
		"AZURE_OPENAI_DEPLOYMENT_NAME",
		"AI_PROVIDER",
		"AI_TIMEOUT",
		"PORT",
		"ENVIRONMENT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearAIEnv(t)

	// Create a temp directory with a config.yaml
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
port: "3443"
env: "test"
files:
  max_file_size: 2048
ai:
  endpoint: "https://example.openai.azure.com"
  deployment_name: "gpt-4o"
  max_tokens: 1000
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Change to temp directory so Load() finds config.yaml
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	// Set env vars to override YAML values
	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AZURE_OPENAI_API_KEY", "secret-key")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}

	// YAML values prove the file was read
	if cfg.AI.Deployment != "gpt-4o" {
		t.Errorf("expected AI.Deployment=gpt-4o (from yaml), got %s", cfg.AI.Deployment)
	}
	if cfg.AI.MaxTokens != 1000 {
		t.Errorf("expected AI.MaxTokens=1000 (from yaml), got %d", cfg.AI.MaxTokens)
	}
	if cfg.Files.MaxFileSize != 2048 {
		t.Errorf("expected Files.MaxFileSize=2048 (from yaml), got %d", cfg.Files.MaxFileSize)
	}

	// Secret only from env
	if cfg.AI.APIKey != "secret-key" {
		t.Errorf("expected AI.APIKey from env, got %q", cfg.AI.APIKey)
	}
	if !cfg.AI.IsConfigured() {
		t.Error("expected AI to be configured")
	}
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	clearAIEnv(t)

	tmpDir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(tmpDir, "missing.yaml"), "v1")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Port != "7071" {
		t.Errorf("expected default Port=7071, got %s", cfg.Port)
	}
	if cfg.AI.Provider != ProviderAzure {
		t.Errorf("expected default provider azure, got %s", cfg.AI.Provider)
	}
	if cfg.AI.APIVersion != "2024-02-15-preview" {
		t.Errorf("unexpected default API version %s", cfg.AI.APIVersion)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.AI.Timeout)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Errorf("expected default temperature 0.3, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.DefaultConfidenceThreshold != 0.8 {
		t.Errorf("expected default confidence threshold 0.8, got %v", cfg.AI.DefaultConfidenceThreshold)
	}
	if cfg.Files.MaxFileSize != 10*1024*1024 {
		t.Errorf("expected default max file size 10MiB, got %d", cfg.Files.MaxFileSize)
	}
	if len(cfg.Files.AllowedExtensions) != 3 {
		t.Errorf("expected 3 allowed extensions, got %v", cfg.Files.AllowedExtensions)
	}
	if cfg.Policy != DefaultPolicy() {
		t.Errorf("expected default policy %+v, got %+v", DefaultPolicy(), cfg.Policy)
	}

	// No endpoint or key: AI path disabled, not an error
	if cfg.AI.IsConfigured() {
		t.Error("expected AI to be unconfigured without credentials")
	}
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	clearAIEnv(t)
	t.Setenv("AI_PROVIDER", "bard")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoad_ProviderIsNormalised(t *testing.T) {
	clearAIEnv(t)
	t.Setenv("AI_PROVIDER", "Anthropic")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if cfg.AI.Provider != ProviderAnthropic {
		t.Errorf("expected provider anthropic, got %s", cfg.AI.Provider)
	}
}

func TestAIConfig_IsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{"all set", AIConfig{Endpoint: "https://x", APIKey: "k", Deployment: "d"}, true},
		{"missing endpoint", AIConfig{APIKey: "k", Deployment: "d"}, false},
		{"whitespace key", AIConfig{Endpoint: "https://x", APIKey: "   ", Deployment: "d"}, false},
		{"missing deployment", AIConfig{Endpoint: "https://x", APIKey: "k"}, false},
		{"nothing", AIConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilesConfig_IsAllowed(t *testing.T) {
	files := FilesConfig{AllowedExtensions: []string{".xlsx", ".xls", ".csv"}}

	tests := []struct {
		filename string
		want     bool
	}{
		{"report.xlsx", true},
		{"REPORT.XLSX", true},
		{"legacy.xls", true},
		{"data.csv", true},
		{"notes.txt", false},
		{"archive.xlsx.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := files.IsAllowed(tt.filename); got != tt.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}
