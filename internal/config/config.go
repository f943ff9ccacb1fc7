package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Filesystem layout
	DataRoot   string
	OutputRoot string

	// Settings file (title remaps, cutoffs, offsets)
	SettingsFile string

	// Output policy
	Overwrite bool

	// Worker pool size for per-(platform, month) parsing
	Workers int

	// Google Cloud (Play earnings bucket)
	PlayBucket            string
	GoogleCredentialsFile string
}

func Load() *Config {
	return &Config{
		DataRoot:     getEnv("TAXMAN_DATA_ROOT", "./data"),
		OutputRoot:   getEnv("TAXMAN_OUTPUT_ROOT", "./reports"),
		SettingsFile: getEnv("TAXMAN_SETTINGS", "./taxman.yaml"),
		Overwrite:    getEnvBool("TAXMAN_OVERWRITE", false),
		Workers:      getEnvInt("TAXMAN_WORKERS", 4),

		PlayBucket:            getEnv("TAXMAN_PLAY_BUCKET", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if c.DataRoot == "" {
		errs = append(errs, "data root cannot be empty")
	} else if _, err := os.Stat(c.DataRoot); os.IsNotExist(err) {
		errs = append(errs, fmt.Sprintf("data root does not exist: %s", c.DataRoot))
	}

	if c.OutputRoot == "" {
		errs = append(errs, "output root cannot be empty")
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("invalid worker count %d: must be at least 1", c.Workers))
	} else if c.Workers > 32 {
		errs = append(errs, fmt.Sprintf("invalid worker count %d: must be at most 32", c.Workers))
	}

	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
