package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "CHAPTERMAP_API_KEY", "LOG_LEVEL", "LOG_FORMAT", "WORKER_COUNT", "JOB_TTL", "CONFIG_CACHE_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("Port = %q, want 8090", cfg.Port)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("log settings = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 {
		t.Errorf("pool = %d/%d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("JobTTL = %v", cfg.JobTTL)
	}
	if cfg.ConfigCacheTTL != 0 || cfg.ConfigCacheSize != 256 {
		t.Errorf("cache = %v/%d", cfg.ConfigCacheTTL, cfg.ConfigCacheSize)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback on by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("CONFIG_CACHE_TTL", "5m")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("negative WORKER_COUNT should fall back, got %d", cfg.WorkerCount)
	}
	if cfg.ConfigCacheTTL != 5*time.Minute {
		t.Errorf("ConfigCacheTTL = %v", cfg.ConfigCacheTTL)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback off")
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:           "8090",
			APIKey:         "secret",
			LogLevel:       "info",
			LogFormat:      "json",
			WorkerCount:    1,
			MaxQueueSize:   1,
			MaxUploadBytes: 1,
			JobTTL:         time.Minute,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := valid()
	cfg.APIKey = ""
	cfg.LogFormat = "xml"
	cfg.ChapterConfigDir = t.TempDir() + "/missing"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"CHAPTERMAP_API_KEY is required", "LOG_FORMAT", "CHAPTER_CONFIG_DIR"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
