package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"nfse/internal/logger"
	"nfse/internal/textsource"
)

type Config struct {
	// Text acquisition
	TextBackend   string
	PdftotextPath string
	TextTimeout   time.Duration

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Batch processing
	BatchWorkers int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	workers, err := getEnvInt("BATCH_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	timeout, err := getEnvDuration("TEXT_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config := &Config{
		TextBackend:                strings.ToLower(getEnv("TEXT_BACKEND", textsource.BackendPDF)),
		PdftotextPath:              getEnv("PDFTOTEXT_PATH", "pdftotext"),
		TextTimeout:                timeout,
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Notas_Fiscais"),
		BatchWorkers:               workers,
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks only what the selected backend needs.
func (c *Config) validate() error {
	if !slices.Contains(textsource.Backends(), c.TextBackend) {
		return fmt.Errorf("TEXT_BACKEND must be one of %s, got %q", strings.Join(textsource.Backends(), ", "), c.TextBackend)
	}
	if c.TextBackend == textsource.BackendDocumentAI {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the %s backend", c.TextBackend)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the %s backend", c.TextBackend)
		}
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.BatchWorkers)
	}
	return nil
}

// RequireSheet checks the settings needed to append results to Google Sheets.
func (c *Config) RequireSheet() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	if c.GoogleSheetWorksheet == "" {
		return fmt.Errorf("GOOGLE_SHEET_WORKSHEET is required")
	}
	return nil
}

// TextSourceConfig returns the text source settings, with backend overriding
// TEXT_BACKEND when it is not empty.
func (c *Config) TextSourceConfig(backend string) textsource.Config {
	if backend == "" {
		backend = c.TextBackend
	}
	return textsource.Config{
		Backend:          backend,
		PdftotextPath:    c.PdftotextPath,
		ProjectID:        c.GoogleCloudProject,
		Location:         c.GoogleCloudLocation,
		ProcessorID:      c.DocumentAIProcessorID,
		ProcessorVersion: c.DocumentAIProcessorVersion,
		Timeout:          c.TextTimeout,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 90s: %w", key, err)
	}
	return d, nil
}
