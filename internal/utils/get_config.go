package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type (
	Config struct {
		App          AppConfig          `yaml:"app"`
		Database     DatabaseConfig     `yaml:"database"`
		Storage      StorageConfig      `yaml:"storage"`
		LLM          LLMConfig          `yaml:"llm"`
		Orchestrator OrchestratorConfig `yaml:"orchestrator"`
		Capture      CaptureConfig      `yaml:"capture"`
		KeepAlive    KeepAliveConfig    `yaml:"keepalive"`
		Auth         AuthConfig         `yaml:"auth"`
		Log          LogConfig          `yaml:"log"`
	}

	AppConfig struct {
		Name       string `yaml:"name"`
		ListenAddr string `yaml:"listen_addr" validate:"required"`
		TimeZone   string `yaml:"time_zone" validate:"omitempty,timezone"`
		// Requests per second allowed on the local API.
		RateLimit int `yaml:"rate_limit" validate:"min=0"`
	}

	DatabaseConfig struct {
		// Driver is "sqlite" (default, on-device) or "postgres".
		Driver   string `yaml:"driver" validate:"oneof=sqlite postgres"`
		Path     string `yaml:"path"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Port     string `yaml:"port"`
	}

	StorageConfig struct {
		// Driver is "local" (default) or "s3".
		Driver       string `yaml:"driver" validate:"oneof=local s3"`
		Root         string `yaml:"root"`
		AWSS3Bucket  string `yaml:"aws_s3_bucket" validate:"required_if=Driver s3"`
		AWSS3Region  string `yaml:"aws_s3_region" validate:"required_if=Driver s3"`
		AWSAccessKey string `yaml:"aws_access_key"`
		AWSSecretKey string `yaml:"aws_secret_key"`
		AWSEndpoint  string `yaml:"aws_endpoint"`
	}

	ProviderConfig struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	}

	LLMConfig struct {
		Provider          string         `yaml:"provider" validate:"omitempty,oneof=openai gemini"`
		OpenAI            ProviderConfig `yaml:"openai"`
		Gemini            ProviderConfig `yaml:"gemini"`
		RequestsPerMinute int            `yaml:"requests_per_minute" validate:"min=0"`
		TimeoutSeconds    int            `yaml:"timeout_seconds" validate:"min=0"`
	}

	OrchestratorConfig struct {
		MaxConcurrent    int `yaml:"max_concurrent" validate:"min=0"`
		SubscriberBuffer int `yaml:"subscriber_buffer" validate:"min=0"`
	}

	CaptureConfig struct {
		PreviewMaxDimension int `yaml:"preview_max_dimension" validate:"min=0"`
	}

	KeepAliveConfig struct {
		Enabled bool `yaml:"enabled"`
	}

	AuthConfig struct {
		JWTSecret string `yaml:"jwt_secret"`
	}

	LogConfig struct {
		Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Dir        string `yaml:"dir"`
		MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
		MaxBackups int    `yaml:"max_backups" validate:"min=0"`
		MaxAgeDays int    `yaml:"max_age_days" validate:"min=0"`
	}
)

// DefaultConfig is what the service runs with when no config file exists.
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:       "WellnessWingman",
			ListenAddr: "127.0.0.1:8787",
			RateLimit:  20,
		},
		Database: DatabaseConfig{Driver: "sqlite", Path: "wellnesswingman.db"},
		Storage:  StorageConfig{Driver: "local", Root: "data/blobs"},
		LLM: LLMConfig{
			RequestsPerMinute: 30,
			TimeoutSeconds:    60,
		},
		Orchestrator: OrchestratorConfig{MaxConcurrent: 4, SubscriberBuffer: 32},
		Capture:      CaptureConfig{PreviewMaxDimension: 1024},
		KeepAlive:    KeepAliveConfig{Enabled: true},
		Log: LogConfig{
			Level:      "info",
			Dir:        "logs",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig reads path (a missing file keeps the defaults), applies environment
// overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Printf("config file %s not found, using defaults", path)
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	InitValidator()
	if err := Validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString(&cfg.App.ListenAddr, "WW_LISTEN_ADDR")
	setString(&cfg.App.TimeZone, "WW_TIME_ZONE")
	setString(&cfg.Database.Driver, "WW_DB_DRIVER")
	setString(&cfg.Database.Path, "WW_DB_PATH")
	setString(&cfg.Database.DSN, "WW_DB_DSN")
	setString(&cfg.Storage.Root, "WW_STORAGE_ROOT")
	setString(&cfg.LLM.Provider, "WW_LLM_PROVIDER")
	setString(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "WW_LOG_LEVEL")
	if v, ok := os.LookupEnv("WW_MAX_CONCURRENT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.MaxConcurrent = n
		}
	}
}
