package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

type Config struct {
	Port string `validate:"required,numeric"`

	// Auth
	APIKey string `validate:"required"`

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// Chapter configuration. ChapterConfigDir is layered in front of the
	// embedded catalogue when set.
	ChapterConfigDir string `validate:"omitempty,dir"`
	ContentDir       string `validate:"omitempty,dir"`

	// Config cache
	ConfigCacheTTL  time.Duration `validate:"gte=0"`
	ConfigCacheSize int           `validate:"gte=0"`

	// Worker pool
	WorkerCount  int `validate:"gt=0"`
	MaxQueueSize int `validate:"gt=0"`

	// Upload limits
	MaxUploadBytes int64 `validate:"gt=0"`

	// Job state
	JobTTL time.Duration `validate:"gt=0"`

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("CHAPTERMAP_API_KEY"),

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "json")),

		ChapterConfigDir: os.Getenv("CHAPTER_CONFIG_DIR"),
		ContentDir:       os.Getenv("CONTENT_DIR"),

		ConfigCacheTTL:  envDuration("CONFIG_CACHE_TTL", 0),
		ConfigCacheSize: envInt("CONFIG_CACHE_SIZE", 256),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ConfigCacheSize < 0 {
		cfg.ConfigCacheSize = 0
	}

	return cfg
}

var envNames = map[string]string{
	"Port":             "PORT",
	"APIKey":           "CHAPTERMAP_API_KEY",
	"LogLevel":         "LOG_LEVEL",
	"LogFormat":        "LOG_FORMAT",
	"ChapterConfigDir": "CHAPTER_CONFIG_DIR",
	"ContentDir":       "CONTENT_DIR",
	"ConfigCacheTTL":   "CONFIG_CACHE_TTL",
	"ConfigCacheSize":  "CONFIG_CACHE_SIZE",
	"WorkerCount":      "WORKER_COUNT",
	"MaxQueueSize":     "MAX_QUEUE_SIZE",
	"MaxUploadBytes":   "MAX_UPLOAD_BYTES",
	"JobTTL":           "JOB_TTL",
}

// Validate reports every invalid setting by its environment variable name.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var out error
	for _, fe := range verrs {
		name := envNames[fe.StructField()]
		if name == "" {
			name = fe.StructField()
		}
		switch fe.Tag() {
		case "required":
			out = multierr.Append(out, fmt.Errorf("%s is required", name))
		case "dir":
			out = multierr.Append(out, fmt.Errorf("%s: %q is not a directory", name, fe.Value()))
		default:
			out = multierr.Append(out, fmt.Errorf("%s: invalid value %v (%s)", name, fe.Value(), fe.Tag()))
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
