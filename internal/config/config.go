package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string         `yaml:"env" env:"ENV" env-default:"local"`
	Server        Server         `yaml:"server"`
	Storage       Storage        `yaml:"storage"`
	GitHub        GitHub         `yaml:"github"`
	Organizations []Organization `yaml:"organizations"`
}

type Server struct {
	Host    string        `yaml:"host" env-default:"localhost"`
	Port    string        `yaml:"port" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type Storage struct {
	Dir string `yaml:"dir" env:"STORAGE_DIR" env-default:"./data"`
}

type GitHub struct {
	Token string `env:"GITHUB_TOKEN"`
	// BaseURL overrides the API endpoint for GitHub Enterprise hosts.
	// Empty means api.github.com.
	BaseURL string `yaml:"base_url" env:"GITHUB_BASE_URL"`
	// BatchSize bounds how many repositories are fetched concurrently.
	BatchSize int `yaml:"batch_size" env-default:"5"`
	// MaxRetries caps retries of transient upstream failures per page.
	MaxRetries int `yaml:"max_retries" env-default:"3"`
	// MinRemaining is the rate-limit floor below which new fetches are refused.
	MinRemaining int `yaml:"min_remaining" env-default:"100"`
}

// Organization is one configured upstream organization. Aliases are extra
// tokens the query parser recognizes for it (e.g. a "-mint" suffix).
type Organization struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Aliases     []string `yaml:"aliases"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}

// MustLoad is Load for program startup: any error is fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", err)
		os.Exit(1)
	}

	return cfg
}

// OrgNames returns configured organization names in configuration order.
func (c *Config) OrgNames() []string {
	names := make([]string, len(c.Organizations))
	for i, org := range c.Organizations {
		names[i] = org.Name
	}

	return names
}
