package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	OCR       OCRConfig
	Inference InferenceConfig
	Router    RouterConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr    string
	BaseURL string
}

// StorageConfig holds file-store and bookkeeping-store configuration.
type StorageConfig struct {
	Dir    string
	DBPath string
}

// OCRConfig holds recognition-engine configuration.
type OCRConfig struct {
	Provider    string // "tesseract" (primary-local first) | "easyocr" (skip to secondary)
	Pdftoppm    string
	FallbackBin string
	Language    string
	DPI         int
}

// InferenceConfig holds credentials and defaults for the inference service.
type InferenceConfig struct {
	BaseURL string
	Model   string
	Engine  string // file-parser engine for document submissions
	APIKey  string
	Cookie  string
	Referer string
	Title   string
	Timeout time.Duration
}

// RouterConfig holds routing policy and quality-gate thresholds.
type RouterConfig struct {
	PDFDirectToDocument bool
	MinLength           int
	MinNumericLinesPct  float64
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    getEnv("HTTP_ADDR", ":8080"),
			BaseURL: getEnv("BASE_URL", "http://localhost:8080"),
		},
		Storage: StorageConfig{
			Dir:    getEnv("STORAGE_DIR", "./uploads"),
			DBPath: getEnv("DB_PATH", "./diagnosis.db"),
		},
		OCR: OCRConfig{
			Provider:    getEnv("OCR_PROVIDER", "tesseract"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			FallbackBin: getEnv("OCR_FALLBACK_BIN", "easyocr"),
			Language:    getEnv("OCR_LANG", "eng"),
			DPI:         getEnvAsInt("OCR_DPI", 300),
		},
		Inference: InferenceConfig{
			BaseURL: getEnv("INFERENCE_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:   getEnv("INFERENCE_MODEL", "openai/gpt-4o-mini"),
			Engine:  getEnv("INFERENCE_ENGINE", "pdf-text"),
			APIKey:  getEnv("INFERENCE_API_KEY", ""),
			Cookie:  getEnv("INFERENCE_COOKIE", ""),
			Referer: getEnv("INFERENCE_HTTP_REFERER", ""),
			Title:   getEnv("INFERENCE_X_TITLE", ""),
			Timeout: getEnvAsDuration("INFERENCE_TIMEOUT", 120*time.Second),
		},
		Router: RouterConfig{
			PDFDirectToDocument: getEnvAsBool("ROUTER_PDF_DIRECT", true),
			MinLength:           getEnvAsInt("QUALITY_MIN_LENGTH", 300),
			MinNumericLinesPct:  getEnvAsFloat("QUALITY_MIN_NUMERIC_PCT", 5),
		},
	}
}

// Validate checks the loaded configuration for fatal omissions. A missing
// credential pair is intentionally not fatal here: the inference client
// reports it per call so OCR-only usage keeps working.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Storage.Dir == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_DIR is required", ErrInvalidInput)
	}
	if c.Storage.DBPath == "" {
		return NewAppError("CONFIG_ERROR", "DB_PATH is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
