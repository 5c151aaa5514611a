package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Model families the runtime can serve.
const (
	ModelFamilySDXL = "sdxl"
	ModelFamilyWan  = "wan"
)

// Config represents application configuration loaded from environment
// variables. The worker/model knobs mirror the serving runtime's historical
// flag surface.
type Config struct {
	AppEnv            string
	Port              string
	GenerationWorkers int
	ModelFamily       string
	ModelID           string
	Device            string
	UseRefiner        bool
	EnableWatermark   bool
	WatermarkText     string
	StoragePath       string
	JobRetentionTTL   time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		GenerationWorkers: getEnvInt("GENERATION_WORKERS", 1),
		ModelFamily:       strings.ToLower(getEnv("MODEL_FAMILY", ModelFamilySDXL)),
		ModelID:           getEnv("MODEL_ID", "/mnt/models"),
		Device:            getEnv("DEVICE", "cuda"),
		UseRefiner:        getEnvBool("USE_REFINER", false),
		EnableWatermark:   getEnvBool("ENABLE_WATERMARK", true),
		WatermarkText:     getEnv("WATERMARK_TEXT", "AI-generated image. Demo purposes only."),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		JobRetentionTTL:   time.Minute * time.Duration(getEnvInt("JOB_RETENTION_TTL_MINUTES", 60)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
	}

	if cfg.GenerationWorkers < 1 {
		return nil, fmt.Errorf("GENERATION_WORKERS must be at least 1, got %d", cfg.GenerationWorkers)
	}
	if cfg.ModelFamily != ModelFamilySDXL && cfg.ModelFamily != ModelFamilyWan {
		return nil, fmt.Errorf("MODEL_FAMILY must be %q or %q, got %q", ModelFamilySDXL, ModelFamilyWan, cfg.ModelFamily)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "t", "yes":
			return true
		case "false", "0", "f", "no":
			return false
		}
	}
	return fallback
}
