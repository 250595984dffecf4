// Package config loads the analyzer configuration from config.yaml and
// STYLEGLOW_-prefixed environment variables, env overriding file.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	AI        AIConfig        `koanf:"ai"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Compress  CompressConfig  `koanf:"compress"`
	Upload    UploadConfig    `koanf:"upload"`
	Storage   StorageConfig   `koanf:"storage"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type AIConfig struct {
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	PrimaryModel   string        `koanf:"primary_model"`
	FallbackModel  string        `koanf:"fallback_model"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
}

type RateLimitConfig struct {
	Window      time.Duration `koanf:"window"`
	MaxRequests int           `koanf:"max_requests"`
}

type CompressConfig struct {
	MaxWidth  int `koanf:"max_width"`
	MaxHeight int `koanf:"max_height"`
	Quality   int `koanf:"quality"`
}

type UploadConfig struct {
	Enabled   bool          `koanf:"enabled"`
	ConfigURL string        `koanf:"config_url"`
	MaxWidth  int           `koanf:"max_width"`
	MaxHeight int           `koanf:"max_height"`
	Quality   int           `koanf:"quality"`
	Timeout   time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory when present,
// then overlays the environment.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing file is fine, env vars and defaults cover everything.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// STYLEGLOW_AI__API_KEY becomes ai.api_key
	if err := k.Load(env.Provider("STYLEGLOW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STYLEGLOW_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.AI.APIKey = substituteEnvVars(cfg.AI.APIKey)

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"server.port":            8080,
		"ai.primary_model":       "gemini-2.5-flash",
		"ai.fallback_model":      "gemini-2.0-flash",
		"ai.attempt_timeout":     "60s",
		"ratelimit.window":       "3m",
		"ratelimit.max_requests": 1,
		"compress.max_width":     1024,
		"compress.max_height":    1024,
		"compress.quality":       80,
		"upload.max_width":       2048,
		"upload.max_height":      2048,
		"upload.quality":         92,
		"upload.timeout":         "30s",
		"storage.path":           "state.db",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

// substituteEnvVars expands ${VAR} references so secrets can live in
// the environment while the rest of the config lives in the file.
func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
