package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings holds process-level settings. Command-line flags override them.
type Settings struct {
	// Path to the antenna configuration file
	ConfigurationFile string

	// Path to the repository (or plain directory) to analyze
	Repository string

	// Worker pool size; 0 means use the configuration file or the default
	Workers int

	// zerolog level name
	LogLevel string
}

// LoadSettings loads settings from the environment, reading a .env file in
// the working directory first when one exists.
func LoadSettings() *Settings {
	_ = godotenv.Load()

	return &Settings{
		ConfigurationFile: getEnv("ANTENNA_CONFIGURATION_FILE", "./antenna.yml"),
		Repository:        getEnv("ANTENNA_REPOSITORY", "."),
		Workers:           getEnvInt("ANTENNA_WORKERS", 0),
		LogLevel:          strings.ToLower(getEnv("ANTENNA_LOG_LEVEL", "info")),
	}
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
