package config

import (
	"os"
	"testing"
)

func TestLoadSettings_Defaults(t *testing.T) {
	// Clear relevant env vars to test defaults
	envVars := []string{
		"ANTENNA_CONFIGURATION_FILE", "ANTENNA_REPOSITORY",
		"ANTENNA_WORKERS", "ANTENNA_LOG_LEVEL",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
	t.Chdir(t.TempDir())

	s := LoadSettings()

	if s.ConfigurationFile != "./antenna.yml" {
		t.Errorf("ConfigurationFile = %s, want ./antenna.yml", s.ConfigurationFile)
	}
	if s.Repository != "." {
		t.Errorf("Repository = %s, want .", s.Repository)
	}
	if s.Workers != 0 {
		t.Errorf("Workers = %d, want 0", s.Workers)
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", s.LogLevel)
	}
}

func TestLoadSettings_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANTENNA_CONFIGURATION_FILE", "/etc/antenna.toml")
	t.Setenv("ANTENNA_REPOSITORY", "/src/project")
	t.Setenv("ANTENNA_WORKERS", "12")
	t.Setenv("ANTENNA_LOG_LEVEL", "DEBUG")

	s := LoadSettings()

	if s.ConfigurationFile != "/etc/antenna.toml" {
		t.Errorf("ConfigurationFile = %s, want /etc/antenna.toml", s.ConfigurationFile)
	}
	if s.Repository != "/src/project" {
		t.Errorf("Repository = %s, want /src/project", s.Repository)
	}
	if s.Workers != 12 {
		t.Errorf("Workers = %d, want 12", s.Workers)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", s.LogLevel)
	}
}

func TestLoadSettings_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ANTENNA_REPOSITORY", "")
	os.Unsetenv("ANTENNA_REPOSITORY")

	if err := os.WriteFile(".env", []byte("ANTENNA_REPOSITORY=/from/dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ANTENNA_REPOSITORY") })

	s := LoadSettings()
	if s.Repository != "/from/dotenv" {
		t.Errorf("Repository = %s, want /from/dotenv", s.Repository)
	}
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("ANTENNA_TEST_INT", "not-a-number")

	if got := getEnvInt("ANTENNA_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt() = %d, want 7", got)
	}
}
