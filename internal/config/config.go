package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root       string   `yaml:"root" validate:"required"`
		Extensions []string `yaml:"extensions" validate:"required,min=1,dive,startswith=."`
		Ignore     []string `yaml:"ignore"`
	} `yaml:"project"`
	Output struct {
		Dir string `yaml:"dir" validate:"required"`
	} `yaml:"output"`
	Storage struct {
		DB string `yaml:"db" validate:"required"`
	} `yaml:"storage"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Project.Extensions = []string{".jsonnet", ".libsonnet"}
	cfg.Project.Ignore = []string{".git", "vendor", "node_modules"}
	cfg.Output.Dir = "docs"
	cfg.Storage.DB = "jsonnetdoc.db"
	return &cfg
}

// LoadConfig reads path on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("JSONNETDOC_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if out := os.Getenv("JSONNETDOC_OUTPUT"); out != "" {
		cfg.Output.Dir = out
	}
	if db := os.Getenv("JSONNETDOC_DB"); db != "" {
		cfg.Storage.DB = db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
