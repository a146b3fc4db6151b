// Package config loads runtime settings from an optional YAML file, an
// optional .env file and the process environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/david/rfp-desk/internal/backend"
	"github.com/david/rfp-desk/internal/proposal"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Session  SessionConfig  `yaml:"session"`
	Proposal ProposalConfig `yaml:"proposal"`
	Export   ExportConfig   `yaml:"export"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

type BackendConfig struct {
	URL            string  `yaml:"url"`
	Feed           string  `yaml:"feed"`
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Default: 5
}

type SessionConfig struct {
	ClosingSoonDays int `yaml:"closing_soon_days"`
	// ClearBeforeRefresh empties the displayed collection while a refresh
	// is in flight.
	ClearBeforeRefresh bool `yaml:"clear_before_refresh"`
}

type ProposalConfig struct {
	proposal.Config `yaml:",inline"`
	FromEmail       string `yaml:"from_email"`
	// DefaultToEmail is used when an opportunity carries no submission
	// address of its own.
	DefaultToEmail string `yaml:"default_to_email,omitempty"`
}

type ExportConfig struct {
	VerifyRoundTrip bool `yaml:"verify_round_trip"`
}

func Default() Config {
	pc := proposal.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port:        "8081",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Backend: BackendConfig{
			URL:            "http://127.0.0.1:5000",
			Feed:           string(backend.FeedScrape),
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RateLimitRPS:   5,
		},
		Session: SessionConfig{
			ClosingSoonDays:    7,
			ClearBeforeRefresh: true,
		},
		Proposal: ProposalConfig{
			Config:    pc,
			FromEmail: pc.CompanyEmail,
		},
	}
}

// Load builds the configuration. A missing .env file or an empty path is
// not an error; a path that cannot be read is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// ${VAR} references are resolved against the environment
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("RFP_FEED"); v != "" {
		c.Backend.Feed = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}
	if v := os.Getenv("PROPOSAL_FROM_EMAIL"); v != "" {
		c.Proposal.FromEmail = v
	}
	if v := os.Getenv("PROPOSAL_TO_EMAIL"); v != "" {
		c.Proposal.DefaultToEmail = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url %q is not an absolute URL", c.Backend.URL))
	}
	if _, err := backend.ParseFeed(c.Backend.Feed); err != nil {
		errs = append(errs, fmt.Errorf("backend.feed: %w", err))
	}
	if c.Backend.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("backend.timeout_seconds must be positive"))
	}
	if c.Backend.MaxRetries < 0 {
		errs = append(errs, errors.New("backend.max_retries must not be negative"))
	}
	if c.Backend.RateLimitRPS < 0 {
		errs = append(errs, errors.New("backend.rate_limit_rps must not be negative"))
	}
	if c.Session.ClosingSoonDays < 0 {
		errs = append(errs, errors.New("session.closing_soon_days must not be negative"))
	}
	if c.Proposal.ValidityDays <= 0 {
		errs = append(errs, errors.New("proposal.validity_days must be positive"))
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	return errors.Join(errs...)
}

// BackendClientConfig converts the backend section for backend.NewClient.
func (c *Config) BackendClientConfig() backend.Config {
	return backend.Config{
		BaseURL:      c.Backend.URL,
		Timeout:      time.Duration(c.Backend.TimeoutSeconds) * time.Second,
		MaxRetries:   c.Backend.MaxRetries,
		RateLimitRPS: c.Backend.RateLimitRPS,
	}
}

func (c *Config) ClosingSoonWindow() time.Duration {
	return time.Duration(c.Session.ClosingSoonDays) * 24 * time.Hour
}

// FeedName returns the configured feed; Validate has already accepted it.
func (c *Config) FeedName() backend.Feed {
	f, _ := backend.ParseFeed(c.Backend.Feed)
	return f
}
