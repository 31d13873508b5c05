package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"prepsnap-quiz/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Remote struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`
	Quiz struct {
		Duration string `yaml:"duration"`
		Tick     string `yaml:"tick"`
		TTL      string `yaml:"ttl"`
	} `yaml:"quiz"`
	UI struct {
		Theme string `yaml:"theme"`
	} `yaml:"ui"`
	Stub struct {
		Port     string                `yaml:"port"`
		Secret   string                `yaml:"secret"`
		TokenTTL string                `yaml:"token_ttl"`
		Banks    []domain.QuestionBank `yaml:"banks"`
	} `yaml:"stub"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns an empty config when path does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	return cfg, err
}

// Theme returns the configured presentation theme.
func (c Config) Theme() domain.Theme {
	return domain.ParseTheme(c.UI.Theme)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
