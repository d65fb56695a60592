package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config describes the deployment environment: how the stack is named,
// which region it targets, and how the handler artifact is packaged.
type Config struct {
	Project   string         `yaml:"project"`
	Stack     string         `yaml:"stack"`
	Region    string         `yaml:"region"`
	DevOrigin string         `yaml:"dev_origin"`
	Storage   StorageConfig  `yaml:"storage"`
	Function  FunctionConfig `yaml:"function"`
}

type StorageConfig struct {
	BucketPrefix string `yaml:"bucket_prefix"`
}

// FunctionConfig points at the deployable handler artifact. The handler's
// business logic lives outside this repository; only its packaging is
// configured here.
type FunctionConfig struct {
	CodePath       string `yaml:"code_path"`
	Handler        string `yaml:"handler"`
	Runtime        string `yaml:"runtime"`
	MemoryMB       int    `yaml:"memory_mb"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Priority order: env vars > config file > defaults

	cfg, err := loadFromFile()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if cfg == nil {
		cfg = Default()
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Project:   "webstack",
		Stack:     "dev",
		Region:    "us-east-1",
		DevOrigin: "http://localhost:3000",
		Storage: StorageConfig{
			BucketPrefix: "webstack-site",
		},
		Function: FunctionConfig{
			CodePath:       "./handler",
			Handler:        "index.handler",
			Runtime:        "nodejs18.x",
			MemoryMB:       128,
			TimeoutSeconds: 10,
		},
	}
}

func loadFromFile() (*Config, error) {
	if configFile := os.Getenv("WEBSTACK_CONFIG_FILE"); configFile != "" {
		return loadConfigFile(configFile)
	}

	locations := []string{
		"webstack.yaml",
		"webstack.yml",
		".webstack.yaml",
		".webstack.yml",
		filepath.Join(os.Getenv("HOME"), ".webstack", "config.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loadConfigFile(loc)
		}
	}

	return nil, os.ErrNotExist
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEBSTACK_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("WEBSTACK_STACK"); v != "" {
		cfg.Stack = v
	}
	if v := os.Getenv("WEBSTACK_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("WEBSTACK_DEV_ORIGIN"); v != "" {
		cfg.DevOrigin = v
	}
	if v := os.Getenv("WEBSTACK_BUCKET_PREFIX"); v != "" {
		cfg.Storage.BucketPrefix = v
	}
	if v := os.Getenv("WEBSTACK_FUNCTION_CODE"); v != "" {
		cfg.Function.CodePath = v
	}
	if v := os.Getenv("WEBSTACK_FUNCTION_RUNTIME"); v != "" {
		cfg.Function.Runtime = v
	}
	if v := os.Getenv("WEBSTACK_FUNCTION_MEMORY_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Function.MemoryMB = n
		}
	}
}

// Validate checks the configuration for values the descriptor cannot work
// with. Anything beyond this is caught by the orchestration engine at plan
// time.
func (c *Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if c.Stack == "" {
		return fmt.Errorf("stack name must not be empty")
	}
	if c.Region == "" {
		return fmt.Errorf("region must not be empty")
	}
	if c.DevOrigin == "" {
		return fmt.Errorf("dev_origin must not be empty")
	}
	if c.Storage.BucketPrefix == "" {
		return fmt.Errorf("storage.bucket_prefix must not be empty")
	}
	if c.Function.CodePath == "" {
		return fmt.Errorf("function.code_path must not be empty")
	}
	if c.Function.Handler == "" {
		return fmt.Errorf("function.handler must not be empty")
	}
	if c.Function.Runtime == "" {
		return fmt.Errorf("function.runtime must not be empty")
	}
	if c.Function.MemoryMB < 128 || c.Function.MemoryMB > 10240 {
		return fmt.Errorf("function.memory_mb must be between 128 and 10240, got %d", c.Function.MemoryMB)
	}
	if c.Function.TimeoutSeconds < 1 || c.Function.TimeoutSeconds > 900 {
		return fmt.Errorf("function.timeout_seconds must be between 1 and 900, got %d", c.Function.TimeoutSeconds)
	}
	return nil
}
