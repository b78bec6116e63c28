package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/validation"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Container ContainerConfig `yaml:"container"`
}

type AppConfig struct {
	Name  string `yaml:"name"`
	Env   string `yaml:"env"` // local | production | testing
	Debug bool   `yaml:"debug"`
	Port  string `yaml:"port"`
}

// ContainerConfig tunes the injector built by the application kernel.
type ContainerConfig struct {
	ValidateOnBuild  bool     `yaml:"validate_on_build"`
	DisabledPolicies []string `yaml:"disabled_policies"`
	LogLevel         string   `yaml:"log_level"`
	Metrics          bool     `yaml:"metrics"`
	MetricsNamespace string   `yaml:"metrics_namespace"`
	Tracing          bool     `yaml:"tracing"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:  "GoInject",
			Env:   "local",
			Debug: true,
			Port:  "8000",
		},
		Container: ContainerConfig{
			ValidateOnBuild:  true,
			LogLevel:         "info",
			Metrics:          true,
			MetricsNamespace: "goinject",
			Tracing:          false,
		},
	}
}

// Load reads .env files (if present), overlays the YAML file named by
// CONTAINER_CONFIG_FILE, then environment variables, and validates the result.
// Call once at bootstrap: cfg, err := config.Load()
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg := Default()
	if path := os.Getenv("CONTAINER_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Name = env("APP_NAME", c.App.Name)
	c.App.Env = env("APP_ENV", c.App.Env)
	c.App.Debug = envBool("APP_DEBUG", c.App.Debug)
	c.App.Port = env("APP_PORT", c.App.Port)

	c.Container.ValidateOnBuild = envBool("CONTAINER_VALIDATE_ON_BUILD", c.Container.ValidateOnBuild)
	c.Container.DisabledPolicies = envList("CONTAINER_DISABLED_POLICIES", c.Container.DisabledPolicies)
	c.Container.LogLevel = env("CONTAINER_LOG_LEVEL", c.Container.LogLevel)
	c.Container.Metrics = envBool("CONTAINER_METRICS", c.Container.Metrics)
	c.Container.MetricsNamespace = env("CONTAINER_METRICS_NAMESPACE", c.Container.MetricsNamespace)
	c.Container.Tracing = envBool("CONTAINER_TRACING", c.Container.Tracing)
}

// Validate checks every setting with the validation package.
func (c *Config) Validate() error {
	return validation.Make(c.values(), validation.Rules{
		"APP_NAME":                    "required|max:64",
		"APP_ENV":                     "required|in:local,production,testing",
		"APP_PORT":                    "required|integer|gte:1|lte:65535",
		"CONTAINER_LOG_LEVEL":         "required|in:debug,info,warn,error",
		"CONTAINER_METRICS_NAMESPACE": `sometimes|regex:^[a-zA-Z_][a-zA-Z0-9_]*$`,
		"CONTAINER_DISABLED_POLICIES": "each_in:" + strings.Join(policyNames(), ","),
	}).Err()
}

func (c *Config) values() map[string]string {
	return map[string]string{
		"APP_NAME":                    c.App.Name,
		"APP_ENV":                     c.App.Env,
		"APP_PORT":                    c.App.Port,
		"CONTAINER_LOG_LEVEL":         c.Container.LogLevel,
		"CONTAINER_METRICS_NAMESPACE": c.Container.MetricsNamespace,
		"CONTAINER_DISABLED_POLICIES": strings.Join(c.Container.DisabledPolicies, ","),
	}
}

func policyNames() []string {
	var names []string
	for _, p := range container.DefaultPolicies() {
		names = append(names, p.Name())
	}
	return names
}

// Environment helpers.
func (c *Config) IsLocal() bool      { return c.App.Env == "local" }
func (c *Config) IsProduction() bool { return c.App.Env == "production" }
func (c *Config) IsTesting() bool    { return c.App.Env == "testing" }

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
