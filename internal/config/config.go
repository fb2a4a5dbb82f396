package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	bphttp "github.com/ligustah/batchproxy/internal/http"
	"github.com/ligustah/batchproxy/internal/pool"
	"github.com/ligustah/batchproxy/internal/progress"
)

// Config defines configuration for the batchproxy CLI.
type Config struct {
	UserAgent        string        `yaml:"user_agent"`
	HealthCheckOnAdd bool          `yaml:"health_check_on_add"`
	PrecacheSize     bool          `yaml:"precache_size"`
	Probe            ProbeConfig   `yaml:"probe"`
	Assignment       string        `yaml:"assignment"`
	ChunkSize        int64         `yaml:"chunk_size"`
	Bucket           string        `yaml:"bucket"`
	Progress         bool          `yaml:"progress"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	Proxies          []Proxy       `yaml:"proxies"`
	Downloads        []Download    `yaml:"downloads"`
}

// ProbeConfig defines the proxy health check.
type ProbeConfig struct {
	URL    string `yaml:"url"`
	Method string `yaml:"method"`
}

// Proxy is one forward proxy.
type Proxy struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Credentials returns the proxy credentials, or nil when anonymous.
func (p Proxy) Credentials() *pool.Credentials {
	if p.Username == "" {
		return nil
	}
	return &pool.Credentials{Username: p.Username, Password: p.Password}
}

// Download is one file to fetch.
type Download struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		UserAgent:        bphttp.DefaultUserAgent,
		HealthCheckOnAdd: true,
		Probe: ProbeConfig{
			URL:    pool.DefaultProbeURL,
			Method: pool.DefaultProbeMethod,
		},
		Assignment:       pool.PolicyShared.String(),
		ChunkSize:        pool.DefaultChunkSize,
		ProgressInterval: time.Second,
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations
// and optional booleans.
type yamlConfig struct {
	UserAgent        string      `yaml:"user_agent"`
	HealthCheckOnAdd *bool       `yaml:"health_check_on_add"`
	PrecacheSize     *bool       `yaml:"precache_size"`
	Probe            ProbeConfig `yaml:"probe"`
	Assignment       string      `yaml:"assignment"`
	ChunkSize        string      `yaml:"chunk_size"`
	Bucket           string      `yaml:"bucket"`
	Progress         bool        `yaml:"progress"`
	ProgressInterval string      `yaml:"progress_interval"`
	Proxies          []Proxy     `yaml:"proxies"`
	Downloads        []Download  `yaml:"downloads"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.HealthCheckOnAdd != nil {
		cfg.HealthCheckOnAdd = *yc.HealthCheckOnAdd
	}
	if yc.PrecacheSize != nil {
		cfg.PrecacheSize = *yc.PrecacheSize
	}
	if yc.Probe.URL != "" {
		cfg.Probe.URL = yc.Probe.URL
	}
	if yc.Probe.Method != "" {
		cfg.Probe.Method = strings.ToUpper(yc.Probe.Method)
	}
	if yc.Assignment != "" {
		cfg.Assignment = yc.Assignment
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	cfg.Bucket = yc.Bucket
	cfg.Progress = yc.Progress
	if yc.ProgressInterval != "" {
		d, err := time.ParseDuration(yc.ProgressInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse progress_interval: %w", err)
		}
		cfg.ProgressInterval = d
	}
	cfg.Proxies = yc.Proxies
	cfg.Downloads = yc.Downloads

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the BATCHPROXY_ prefix. BATCHPROXY_PROXIES is a
// comma-separated list of proxy addresses.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("BATCHPROXY_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("BATCHPROXY_HEALTH_CHECK_ON_ADD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse BATCHPROXY_HEALTH_CHECK_ON_ADD: %w", err)
		}
		c.HealthCheckOnAdd = b
	}
	if v := os.Getenv("BATCHPROXY_PRECACHE_SIZE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse BATCHPROXY_PRECACHE_SIZE: %w", err)
		}
		c.PrecacheSize = b
	}
	if v := os.Getenv("BATCHPROXY_PROBE_URL"); v != "" {
		c.Probe.URL = v
	}
	if v := os.Getenv("BATCHPROXY_PROBE_METHOD"); v != "" {
		c.Probe.Method = strings.ToUpper(v)
	}
	if v := os.Getenv("BATCHPROXY_ASSIGNMENT"); v != "" {
		c.Assignment = v
	}
	if v := os.Getenv("BATCHPROXY_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse BATCHPROXY_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("BATCHPROXY_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("BATCHPROXY_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("BATCHPROXY_PROGRESS_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse BATCHPROXY_PROGRESS_INTERVAL: %w", err)
		}
		c.ProgressInterval = d
	}
	if v := os.Getenv("BATCHPROXY_PROXIES"); v != "" {
		c.Proxies = nil
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				c.Proxies = append(c.Proxies, Proxy{Address: addr})
			}
		}
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.UserAgent == "" {
		return errors.New("config: user_agent must not be empty")
	}
	if c.Probe.Method != http.MethodGet && c.Probe.Method != http.MethodHead {
		return fmt.Errorf("config: probe.method must be GET or HEAD, got %q", c.Probe.Method)
	}
	if c.Probe.URL == "" {
		return errors.New("config: probe.url is required")
	}
	if _, err := pool.ParsePolicy(c.Assignment); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ChunkSize <= 0 || c.ChunkSize > pool.MaxChunkSize {
		return fmt.Errorf("config: chunk_size must be between 1 and %d bytes, got %d", pool.MaxChunkSize, c.ChunkSize)
	}
	if len(c.Proxies) == 0 {
		return errors.New("config: at least one proxy is required")
	}
	for i, p := range c.Proxies {
		if p.Address == "" {
			return fmt.Errorf("config: proxies[%d].address is required", i)
		}
	}
	for i, d := range c.Downloads {
		if d.URL == "" || d.Path == "" {
			return fmt.Errorf("config: downloads[%d] needs url and path", i)
		}
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored, so booleans can only be switched on.
func (c Config) Merge(override Config) Config {
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.PrecacheSize {
		c.PrecacheSize = override.PrecacheSize
	}
	if override.Probe.URL != "" {
		c.Probe.URL = override.Probe.URL
	}
	if override.Probe.Method != "" {
		c.Probe.Method = override.Probe.Method
	}
	if override.Assignment != "" {
		c.Assignment = override.Assignment
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.ProgressInterval != 0 {
		c.ProgressInterval = override.ProgressInterval
	}
	if len(override.Proxies) > 0 {
		c.Proxies = override.Proxies
	}
	if len(override.Downloads) > 0 {
		c.Downloads = append(c.Downloads, override.Downloads...)
	}
	return c
}

// PoolOptions converts the configuration into pool options. Sink, hooks and
// logger are left for the caller.
func (c *Config) PoolOptions() (pool.Options, error) {
	policy, err := pool.ParsePolicy(c.Assignment)
	if err != nil {
		return pool.Options{}, err
	}
	opts := pool.DefaultOptions()
	opts.UserAgent = c.UserAgent
	opts.HealthCheckOnAdd = c.HealthCheckOnAdd
	opts.PrecacheSize = c.PrecacheSize
	opts.ProbeURL = c.Probe.URL
	opts.ProbeMethod = c.Probe.Method
	opts.Policy = policy
	opts.ChunkSize = int(c.ChunkSize)
	return opts, opts.Validate()
}
