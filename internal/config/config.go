package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Checker  CheckerConfig  `yaml:"checker"`
	Static   StaticConfig   `yaml:"static"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Security SecurityConfig `yaml:"security"`
	CORS     CORSConfig     `yaml:"cors"`
	TLS      TLSConfig      `yaml:"tls"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

// CheckerConfig describes the remote proof checker.
type CheckerConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	OutputField      string        `yaml:"output_field"` // field read for the recommendation branch
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
	UserAgent        string        `yaml:"user_agent"`
}

type StaticConfig struct {
	AboutFile    string `yaml:"about_file"`     // served by /learnhammer/
	WellKnownDir string `yaml:"well_known_dir"` // mounted at /.well-known/, empty disables
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AuditBuffer     int           `yaml:"audit_buffer"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SecurityConfig struct {
	AllowedKeys          []string `yaml:"allowed_keys"`
	AllowUnauthenticated bool     `yaml:"allow_unauthenticated"` // applies to the history endpoints only
	RateLimitRPS         float64  `yaml:"rate_limit_rps"`
	RateLimitBurst       int      `yaml:"rate_limit_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// TLSConfig controls HTTPS/TLS termination.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from env or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second, // > checker timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  1 << 20, // 1MB
		},
		Checker: CheckerConfig{
			URL:              "https://coq.livecode.ch/check",
			Timeout:          30 * time.Second,
			OutputField:      "output",
			MaxResponseBytes: 4 << 20,
			UserAgent:        "hammer-relay/1.0",
		},
		Static: StaticConfig{
			AboutFile:    "coqhammer.txt",
			WellKnownDir: ".well-known",
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    25,
			MinConns:        2,
			ConnMaxLifetime: 5 * time.Minute,
			AuditBuffer:     10000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
		},
		TLS: TLSConfig{
			Enabled: false,
		},
	}
}

// ApplyEnv overrides selected settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if u := getenv("CHECKER_URL"); u != "" {
		c.Checker.URL = u
	}
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	return c.Validate()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.MaxRequestBody < 1 {
		return fmt.Errorf("server.max_request_body_bytes must be >= 1")
	}
	if c.Checker.URL == "" {
		return fmt.Errorf("checker.url is required")
	}
	u, err := url.Parse(c.Checker.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("checker.url must be an absolute http(s) URL, got %q", c.Checker.URL)
	}
	if c.Checker.Timeout <= 0 {
		return fmt.Errorf("checker.timeout must be > 0")
	}
	if strings.TrimSpace(c.Checker.OutputField) == "" {
		return fmt.Errorf("checker.output_field is required")
	}
	if c.Checker.MaxResponseBytes < 1 {
		return fmt.Errorf("checker.max_response_bytes must be >= 1")
	}
	if c.Static.AboutFile == "" {
		return fmt.Errorf("static.about_file is required")
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Checker.Timeout {
		log.Warn().
			Dur("write_timeout", c.Server.WriteTimeout).
			Dur("checker_timeout", c.Checker.Timeout).
			Msg("server.write_timeout does not exceed checker.timeout; slow verifications will be cut off")
	}
	if c.Database.DSN != "" && strings.Contains(c.Database.DSN, "sslmode=disable") {
		log.Warn().Msg("database DSN has sslmode=disable, connections to Postgres are unencrypted")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
