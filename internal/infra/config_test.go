package infra

import (
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "GENERATION_WORKERS", "MODEL_FAMILY", "MODEL_ID",
		"DEVICE", "USE_REFINER", "ENABLE_WATERMARK", "WATERMARK_TEXT",
		"STORAGE_PATH", "JOB_RETENTION_TTL_MINUTES", "HTTP_READ_TIMEOUT_SECONDS",
		"HTTP_WRITE_TIMEOUT_SECONDS", "HTTP_IDLE_TIMEOUT_SECONDS", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GenerationWorkers != 1 {
		t.Errorf("GenerationWorkers = %d, want 1", cfg.GenerationWorkers)
	}
	if cfg.ModelFamily != ModelFamilySDXL {
		t.Errorf("ModelFamily = %q, want sdxl", cfg.ModelFamily)
	}
	if cfg.Device != "cuda" {
		t.Errorf("Device = %q, want cuda", cfg.Device)
	}
	if !cfg.EnableWatermark {
		t.Error("EnableWatermark = false, want true")
	}
	if cfg.JobRetentionTTL != time.Hour {
		t.Errorf("JobRetentionTTL = %s, want 1h", cfg.JobRetentionTTL)
	}
	if cfg.HTTPWriteTimeout != 600*time.Second {
		t.Errorf("HTTPWriteTimeout = %s, want 600s", cfg.HTTPWriteTimeout)
	}
	if cfg.RateLimitPerMin != 0 {
		t.Errorf("RateLimitPerMin = %d, want 0", cfg.RateLimitPerMin)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GENERATION_WORKERS", "4")
	t.Setenv("MODEL_FAMILY", "WAN")
	t.Setenv("DEVICE", "cpu")
	t.Setenv("USE_REFINER", "true")
	t.Setenv("ENABLE_WATERMARK", "false")
	t.Setenv("JOB_RETENTION_TTL_MINUTES", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GenerationWorkers != 4 {
		t.Errorf("GenerationWorkers = %d, want 4", cfg.GenerationWorkers)
	}
	if cfg.ModelFamily != ModelFamilyWan {
		t.Errorf("ModelFamily = %q, want wan (lowercased)", cfg.ModelFamily)
	}
	if !cfg.UseRefiner {
		t.Error("UseRefiner = false, want true")
	}
	if cfg.EnableWatermark {
		t.Error("EnableWatermark = true, want false")
	}
	if cfg.JobRetentionTTL != 5*time.Minute {
		t.Errorf("JobRetentionTTL = %s, want 5m", cfg.JobRetentionTTL)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "GENERATION_WORKERS", "0"},
		{"negative workers", "GENERATION_WORKERS", "-3"},
		{"unknown family", "MODEL_FAMILY", "dalle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig with %s=%s succeeded", tt.key, tt.value)
			}
		})
	}
}
