package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is the YAML file read by Load when present.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for the converter service.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"7071"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	App    AppConfig    `yaml:"app"`
	Files  FilesConfig  `yaml:"files"`
	AI     AIConfig     `yaml:"ai"`
	Policy PolicyConfig `yaml:"policy"`
}

// AppConfig holds descriptive metadata reported by the info endpoint.
type AppConfig struct {
	Name        string `yaml:"name" env:"APP_NAME" env-default:"Matrix AI Converter"`
	Description string `yaml:"description" env:"APP_DESCRIPTION" env-default:"Excel/CSV to JSON, JSON to Excel and Excel to SQL conversion service"`
}

// FilesConfig bounds what uploads are accepted.
type FilesConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size" env:"MAX_FILE_SIZE" env-default:"10485760"`
	AllowedExtensions []string `yaml:"allowed_extensions" env:"ALLOWED_EXTENSIONS" env-separator:"," env-default:".xlsx,.xls,.csv"`
}

// IsAllowed reports whether filename ends in one of the allowed extensions.
func (f *FilesConfig) IsAllowed(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range f.AllowedExtensions {
		if strings.HasSuffix(lower, strings.ToLower(strings.TrimSpace(ext))) {
			return true
		}
	}
	return false
}

// AI providers understood by the llm package.
const (
	ProviderAzure     = "azure"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// AIConfig holds the remote completion settings. Credentials are read once
// at startup and never change afterwards.
type AIConfig struct {
	Provider   string `yaml:"provider" env:"AI_PROVIDER" env-default:"azure"`
	Endpoint   string `yaml:"endpoint" env:"AZURE_OPENAI_ENDPOINT" env-default:""`
	APIKey     string `yaml:"-" env:"AZURE_OPENAI_API_KEY"` // Secret - not in YAML
	APIVersion string `yaml:"api_version" env:"AZURE_OPENAI_API_VERSION" env-default:"2024-02-15-preview"`
	Deployment string `yaml:"deployment_name" env:"AZURE_OPENAI_DEPLOYMENT_NAME" env-default:"gpt-4"`
	Model      string `yaml:"model" env:"AZURE_OPENAI_MODEL" env-default:"gpt-4"`

	MaxTokens   int           `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"4000"`
	Temperature float64       `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.3"`
	Timeout     time.Duration `yaml:"timeout" env:"AI_TIMEOUT" env-default:"30s"`

	// MaxRetries bounds retries of transient transport failures inside Timeout.
	MaxRetries int `yaml:"max_retries" env:"AI_MAX_RETRIES" env-default:"1"`
	// CircuitThreshold consecutive failures open the circuit for CircuitReset.
	CircuitThreshold int           `yaml:"circuit_threshold" env:"AI_CIRCUIT_THRESHOLD" env-default:"5"`
	CircuitReset     time.Duration `yaml:"circuit_reset" env:"AI_CIRCUIT_RESET" env-default:"30s"`

	DefaultConfidenceThreshold float64 `yaml:"default_confidence_threshold" env:"DEFAULT_CONFIDENCE_THRESHOLD" env-default:"0.8"`
}

// IsConfigured returns true when endpoint, key and deployment are all set.
// An unconfigured client disables the AI path; it is not a startup error.
func (c *AIConfig) IsConfigured() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.APIKey) != "" &&
		strings.TrimSpace(c.Deployment) != ""
}

// PolicyConfig holds the confidence constants reported per processing path.
// They are deliberately separate values: different call sites report
// different confidence for similar "issues, no AI" outcomes.
type PolicyConfig struct {
	CleanConfidence             float64 `yaml:"clean_confidence" env:"POLICY_CLEAN_CONFIDENCE" env-default:"95"`
	FallbackConfidence          float64 `yaml:"fallback_confidence" env:"POLICY_FALLBACK_CONFIDENCE" env-default:"70"`
	ErrorConfidence             float64 `yaml:"error_confidence" env:"POLICY_ERROR_CONFIDENCE" env-default:"85"`
	OptimizationErrorConfidence float64 `yaml:"optimization_error_confidence" env:"POLICY_OPTIMIZATION_ERROR_CONFIDENCE" env-default:"60"`
	AIAnalysisDefaultConfidence float64 `yaml:"ai_analysis_default_confidence" env:"POLICY_AI_ANALYSIS_DEFAULT_CONFIDENCE" env-default:"85"`
	AIOptimizeDefaultConfidence float64 `yaml:"ai_optimize_default_confidence" env:"POLICY_AI_OPTIMIZE_DEFAULT_CONFIDENCE" env-default:"80"`
	BasicExcelConfidence        float64 `yaml:"basic_excel_confidence" env:"POLICY_BASIC_EXCEL_CONFIDENCE" env-default:"85"`
	SQLFallbackConfidence       float64 `yaml:"sql_fallback_confidence" env:"POLICY_SQL_FALLBACK_CONFIDENCE" env-default:"60"`
}

// DefaultPolicy returns the policy constants used when nothing is configured.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		CleanConfidence:             95,
		FallbackConfidence:          70,
		ErrorConfidence:             85,
		OptimizationErrorConfidence: 60,
		AIAnalysisDefaultConfidence: 85,
		AIOptimizeDefaultConfidence: 80,
		BasicExcelConfidence:        85,
		SQLFallbackConfidence:       60,
	}
}

// Load reads configuration from config.yaml (if present) with environment
// variable overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom reads configuration from path, falling back to the environment
// alone when the file does not exist.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks values that cleanenv cannot express as tags.
func (c *Config) validate() error {
	switch strings.ToLower(c.AI.Provider) {
	case ProviderAzure, ProviderOpenAI, ProviderAnthropic:
		c.AI.Provider = strings.ToLower(c.AI.Provider)
	default:
		return fmt.Errorf("ai provider %q is not supported", c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai timeout must be positive")
	}
	if c.AI.DefaultConfidenceThreshold < 0 || c.AI.DefaultConfidenceThreshold > 1 {
		return fmt.Errorf("default confidence threshold must be between 0 and 1")
	}
	if c.Files.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	return nil
}
