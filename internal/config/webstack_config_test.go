package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		envVars     map[string]string
		wantError   bool
		wantProject string
		wantRegion  string
	}{
		{
			name:        "Default config",
			wantError:   false,
			wantProject: "webstack",
			wantRegion:  "us-east-1",
		},
		{
			name: "Custom config file",
			configYAML: `
project: storefront
stack: prod
region: eu-west-1
`,
			wantError:   false,
			wantProject: "storefront",
			wantRegion:  "eu-west-1",
		},
		{
			name: "Environment override",
			envVars: map[string]string{
				"WEBSTACK_REGION": "ap-southeast-2",
			},
			wantError:   false,
			wantProject: "webstack",
			wantRegion:  "ap-southeast-2",
		},
		{
			name: "Environment override wins over file",
			configYAML: `
region: eu-west-1
`,
			envVars: map[string]string{
				"WEBSTACK_REGION": "us-west-2",
			},
			wantError:   false,
			wantProject: "webstack",
			wantRegion:  "us-west-2",
		},
		{
			name: "Invalid memory rejected",
			configYAML: `
function:
  memory_mb: 64
`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("WEBSTACK_CONFIG_FILE")
			os.Unsetenv("WEBSTACK_PROJECT")
			os.Unsetenv("WEBSTACK_REGION")

			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			if tt.configYAML != "" {
				path := filepath.Join(t.TempDir(), "webstack.yaml")
				if err := os.WriteFile(path, []byte(tt.configYAML), 0644); err != nil {
					t.Fatalf("failed to write config file: %v", err)
				}
				os.Setenv("WEBSTACK_CONFIG_FILE", path)
				defer os.Unsetenv("WEBSTACK_CONFIG_FILE")
			}

			cfg, err := Load()
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Project != tt.wantProject {
				t.Errorf("project = %q, want %q", cfg.Project, tt.wantProject)
			}
			if cfg.Region != tt.wantRegion {
				t.Errorf("region = %q, want %q", cfg.Region, tt.wantRegion)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"Defaults are valid", func(c *Config) {}, false},
		{"Empty project", func(c *Config) { c.Project = "" }, true},
		{"Empty stack", func(c *Config) { c.Stack = "" }, true},
		{"Empty region", func(c *Config) { c.Region = "" }, true},
		{"Empty bucket prefix", func(c *Config) { c.Storage.BucketPrefix = "" }, true},
		{"Empty handler", func(c *Config) { c.Function.Handler = "" }, true},
		{"Timeout too large", func(c *Config) { c.Function.TimeoutSeconds = 901 }, true},
		{"Memory too small", func(c *Config) { c.Function.MemoryMB = 64 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultFunctionPackaging(t *testing.T) {
	cfg := Default()
	if cfg.Function.Handler != "index.handler" {
		t.Errorf("handler = %q, want index.handler", cfg.Function.Handler)
	}
	if cfg.Function.Runtime != "nodejs18.x" {
		t.Errorf("runtime = %q, want nodejs18.x", cfg.Function.Runtime)
	}
	if cfg.DevOrigin != "http://localhost:3000" {
		t.Errorf("dev origin = %q, want http://localhost:3000", cfg.DevOrigin)
	}
}
