// Package config loads the application configuration from a YAML file
// with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:readmoa.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Crawler CrawlerConfig `yaml:"crawler" json:"crawler" jsonschema:"description=Feed crawler configuration"`

	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Read API server configuration"`
}

// CrawlerConfig holds crawl loop settings
type CrawlerConfig struct {
	MaxItemsPerFeed int           `yaml:"max_items_per_feed" json:"max_items_per_feed" jsonschema:"default=2,minimum=1,description=Newest items read per feed per run"`
	AgeLimit        time.Duration `yaml:"age_limit" json:"age_limit" jsonschema:"default=24h,description=Items published longer ago than this are not ingested"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" jsonschema:"default=30s,description=Per-request HTTP timeout"`
	MaxWorkers      int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=4,description=Maximum concurrent feed workers across distinct origins"`
	PolitenessDelay time.Duration `yaml:"politeness_delay" json:"politeness_delay" jsonschema:"default=1s,description=Minimum spacing between requests to the same origin"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=ReadMoa/1.0,description=User agent for outgoing requests"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is given
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Database.DSN == "" {
		c.Database.DSN = "file:readmoa.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	if c.Crawler.MaxItemsPerFeed == 0 {
		c.Crawler.MaxItemsPerFeed = 2
	}
	if c.Crawler.AgeLimit == 0 {
		c.Crawler.AgeLimit = 24 * time.Hour
	}
	if c.Crawler.FetchTimeout == 0 {
		c.Crawler.FetchTimeout = 30 * time.Second
	}
	if c.Crawler.MaxWorkers == 0 {
		c.Crawler.MaxWorkers = 4
	}
	if c.Crawler.PolitenessDelay == 0 {
		c.Crawler.PolitenessDelay = time.Second
	}
	if c.Crawler.UserAgent == "" {
		c.Crawler.UserAgent = "ReadMoa/1.0"
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Crawler.MaxItemsPerFeed < 1 {
		return fmt.Errorf("crawler.max_items_per_feed must be at least 1")
	}
	if c.Crawler.AgeLimit < time.Minute {
		return fmt.Errorf("crawler.age_limit must be at least 1 minute")
	}
	if c.Crawler.FetchTimeout < time.Second {
		return fmt.Errorf("crawler.fetch_timeout must be at least 1 second")
	}
	if c.Crawler.MaxWorkers < 1 {
		return fmt.Errorf("crawler.max_workers must be at least 1")
	}
	if c.Crawler.PolitenessDelay < 0 {
		return fmt.Errorf("crawler.politeness_delay must be non-negative")
	}
	if c.Server.Timeout < time.Second {
		return fmt.Errorf("server.timeout must be at least 1 second")
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
