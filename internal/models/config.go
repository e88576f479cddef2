package models

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr         string `yaml:"server_addr"`
	StaticDir          string `yaml:"static_dir"`
	GeneratedDir       string `yaml:"generated_dir"`
	GalleryDir         string `yaml:"gallery_dir"`
	OpenRouterBaseURL  string `yaml:"openrouter_base_url"`
	Model              string `yaml:"model"`
	GenerateTimeoutSec int    `yaml:"generate_timeout_sec"`

	// APIKey comes from the environment, never from the config file.
	APIKey string `yaml:"-"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr:         "127.0.0.1:8360",
		StaticDir:          "./web",
		GeneratedDir:       "./generated",
		GalleryDir:         "./gallery",
		OpenRouterBaseURL:  "https://openrouter.ai/api/v1",
		Model:              "google/gemini-3-pro-image-preview",
		GenerateTimeoutSec: 300,
	}
}

// LoadConfig reads the yaml config at path, falling back to defaults when the
// file does not exist. An optional .env file is applied before the API key is
// read from the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
			return nil, uerr
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	loadEnvFile(".env")
	cfg.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))

	return cfg, nil
}

// loadEnvFile sets KEY=VALUE pairs from path without overriding variables
// already present in the environment.
func loadEnvFile(path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		v := strings.Trim(strings.TrimSpace(line[i+1:]), `"'`)
		if _, exists := os.LookupEnv(k); !exists && k != "" {
			_ = os.Setenv(k, v)
		}
	}
}
