package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// BaseURL is the public origin used in widget embed URLs and email links.
		BaseURL string `yaml:"baseUrl" validate:"omitempty,url"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
		Format string `yaml:"format" validate:"omitempty,oneof=text json"`
	} `yaml:"log"`
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db" validate:"gte=0"`
		TTL       string `yaml:"ttl"`
		ResultTTL string `yaml:"resultTtl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// Dir loads definitions from disk instead of the built-in set when no
		// database is configured.
		Dir string `yaml:"dir"`
	} `yaml:"quiz"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from" validate:"required_with=Host"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"smtp"`
	Events struct {
		Brokers     []string `yaml:"brokers"`
		QuizTopic   string   `yaml:"quizTopic"`
		WidgetTopic string   `yaml:"widgetTopic"`
		LeadTopic   string   `yaml:"leadTopic"`
	} `yaml:"events"`
	Partner struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"partner"`
}

// Load reads YAML config from path. ${VAR} references are expanded from the
// environment before parsing so secrets can stay out of the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
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
