// Package cfg loads service configuration from a YAML file or
// environment variables, with env vars taking precedence over file
// values.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"iris-predictor/internal/artifacts"
)

type Settings struct {
	Port         int
	ArtifactsDir string
	DateTag      string
	ModelPath    string
	ScalerPath   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ConfigFile struct {
	Server struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
		IdleTimeout  string `yaml:"idleTimeout"`
	} `yaml:"server"`

	Artifacts struct {
		Dir        string `yaml:"dir"`
		DateTag    string `yaml:"dateTag"`
		ModelPath  string `yaml:"modelPath"`
		ScalerPath string `yaml:"scalerPath"`
	} `yaml:"artifacts"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Port:         getIntFromEnvOrConfig("PORT", config.Server.Port, 8080),
		ArtifactsDir: getEnvOrDefault("ARTIFACTS_DIR", orDefault(config.Artifacts.Dir, "artifacts")),
		DateTag:      getEnvOrDefault("DATE_TAG", config.Artifacts.DateTag),
		ModelPath:    getEnvOrDefault("MODEL_PATH", config.Artifacts.ModelPath),
		ScalerPath:   getEnvOrDefault("SCALER_PATH", config.Artifacts.ScalerPath),
		ReadTimeout:  parseDurationOrDefault(config.Server.ReadTimeout, 10*time.Second),
		WriteTimeout: parseDurationOrDefault(config.Server.WriteTimeout, 10*time.Second),
		IdleTimeout:  parseDurationOrDefault(config.Server.IdleTimeout, 120*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:         getIntOrDefault("PORT", 8080),
		ArtifactsDir: getEnvOrDefault("ARTIFACTS_DIR", "artifacts"),
		DateTag:      os.Getenv("DATE_TAG"), // optional, defaults to today at resolve time
		ModelPath:    os.Getenv("MODEL_PATH"),
		ScalerPath:   os.Getenv("SCALER_PATH"),
		ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  getDurationOrDefault("IDLE_TIMEOUT", 120*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// ArtifactSource returns the artifact resolution strategy these settings
// describe: explicit paths when configured, otherwise the directory plus
// date-tag convention.
func (s *Settings) ArtifactSource() artifacts.Source {
	tag := s.DateTag
	if tag == "" {
		tag = time.Now().Format(artifacts.TagFormat)
	}
	return artifacts.Source{
		Dir:        s.ArtifactsDir,
		Tag:        tag,
		ModelPath:  s.ModelPath,
		ScalerPath: s.ScalerPath,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseDurationOrDefault(v string, defaultValue time.Duration) time.Duration {
	if v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func validateSettings(settings *Settings) error {
	if settings.Port < 1024 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535, got %d", settings.Port)
	}
	if settings.DateTag != "" {
		if _, err := time.Parse(artifacts.TagFormat, settings.DateTag); err != nil {
			return fmt.Errorf("date tag must be YYYYMMDD, got %q", settings.DateTag)
		}
	}
	if settings.ArtifactsDir == "" && (settings.ModelPath == "" || settings.ScalerPath == "") {
		return fmt.Errorf("artifacts directory or explicit model and scaler paths are required")
	}
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 1m, got %v", settings.WriteTimeout)
	}
	if settings.IdleTimeout < time.Second || settings.IdleTimeout > 10*time.Minute {
		return fmt.Errorf("idle timeout must be between 1s and 10m, got %v", settings.IdleTimeout)
	}
	return nil
}
