package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the block engine
type Config struct {
	Server struct {
		Port         int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
		BodyLimit    int           `env:"BODY_LIMIT" envDefault:"1048576" validate:"min=1"` // 1MB
	}

	Engine EngineConfig

	Storage struct {
		DataDir string `env:"DATA_DIR" envDefault:"./data"`
		Persist bool   `env:"PERSIST_DOCUMENTS" envDefault:"false"`
	}

	Security struct {
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," validate:"cors_origins"`
	}

	RateLimit struct {
		Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
		RPS     int  `env:"RATE_LIMIT_RPS" envDefault:"50" validate:"min=1"`
		Burst   int  `env:"RATE_LIMIT_BURST" envDefault:"100" validate:"min=1"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}
}

// EngineConfig tunes the transformation subsystems. Zero values fall back to the
// subsystem defaults.
type EngineConfig struct {
	MaxHistory          int      `env:"ENGINE_MAX_HISTORY" envDefault:"100" validate:"min=1"`
	MaxSplitParts       int      `env:"ENGINE_MAX_SPLIT_PARTS" envDefault:"20" validate:"min=2"`
	MinPartLength       int      `env:"ENGINE_MIN_PART_LENGTH" envDefault:"1" validate:"min=1"`
	MaxBulkBlocks       int      `env:"ENGINE_MAX_BULK_BLOCKS" envDefault:"50" validate:"min=1"`
	DefaultSeparator    string   `env:"ENGINE_DEFAULT_SEPARATOR"`
	WordsPerBlock       int      `env:"ENGINE_WORDS_PER_BLOCK" envDefault:"5" validate:"min=1"`
	ResolutionCacheSize int      `env:"ENGINE_RESOLUTION_CACHE_SIZE" envDefault:"1024" validate:"min=16"`
	DisabledRules       []string `env:"ENGINE_DISABLED_RULES" envSeparator:","`
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration using struct tags
func Validate(cfg *Config) error {
	validator := validator.New()

	if err := validator.RegisterValidation("cors_origins", validateCORSOrigins); err != nil {
		return fmt.Errorf("failed to register cors_origins validation: %w", err)
	}

	if err := validator.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCORSOrigins(fl validator.FieldLevel) bool {
	origins := fl.Field().Interface().([]string)
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return false
		}
	}
	return true
}

func validateCustomRules(cfg *Config) error {
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if cfg.Server.ReadTimeout < time.Millisecond {
		return fmt.Errorf("read timeout must be at least 1ms")
	}
	if cfg.Server.WriteTimeout < time.Millisecond {
		return fmt.Errorf("write timeout must be at least 1ms")
	}
	if cfg.RateLimit.Burst < cfg.RateLimit.RPS {
		return fmt.Errorf("rate limit burst (%d) must not be below rps (%d)", cfg.RateLimit.Burst, cfg.RateLimit.RPS)
	}
	for i, name := range cfg.Engine.DisabledRules {
		cfg.Engine.DisabledRules[i] = strings.TrimSpace(name)
	}
	return nil
}

// DocumentsDir is where persisted documents live
func (cfg *Config) DocumentsDir() string {
	return filepath.Join(cfg.Storage.DataDir, "documents")
}

// EnsureDirectories creates the data directories
func (cfg *Config) EnsureDirectories() error {
	dirs := []string{cfg.Storage.DataDir}
	if cfg.Storage.Persist {
		dirs = append(dirs, cfg.DocumentsDir())
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validationMessages renders a failed tag; %[1]s is the field, %[2]s the tag parameter
var validationMessages = map[string]string{
	"required":     "%[1]s is required",
	"min":          "%[1]s must be at least %[2]s",
	"max":          "%[1]s must be at most %[2]s",
	"oneof":        "%[1]s must be one of: %[2]s",
	"cors_origins": "%[1]s contains invalid origin format",
}

// formatValidationError joins validator errors into one readable error
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		format, ok := validationMessages[e.Tag()]
		if !ok {
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
			continue
		}
		messages = append(messages, fmt.Sprintf(format, e.Field(), e.Param()))
	}
	return fmt.Errorf("validation errors: %s", strings.Join(messages, "; "))
}
