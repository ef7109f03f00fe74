package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources  Sources        `yaml:"sources"`
	Digest   DigestConfig   `yaml:"digest"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Output   Output         `yaml:"output"`
}

// Sources is the closed set of providers. Field order here is the
// section order of the generated digest.
type Sources struct {
	HackerNews SourceConfig `yaml:"hackernews"`
	Reddit     SourceConfig `yaml:"reddit"`
	Lobsters   SourceConfig `yaml:"lobsters"`
	DevTo      SourceConfig `yaml:"devto"`
	RSS        SourceConfig `yaml:"rss"`
}

type SourceConfig struct {
	Enabled    bool     `yaml:"enabled"`
	MaxItems   int      `yaml:"max_items"`
	Subreddits []string `yaml:"subreddits,omitempty"`
	Tags       []string `yaml:"tags,omitempty"`
	Feeds      []Feed   `yaml:"feeds,omitempty"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type DigestConfig struct {
	Title                 string `yaml:"title"`
	Subtitle              string `yaml:"subtitle"`
	MaxArticlesPerSection int    `yaml:"max_articles_per_section"`
	IncludeScores         bool   `yaml:"include_scores"`
	IncludeCommentsLink   bool   `yaml:"include_comments_link"`
}

type FetchConfig struct {
	TimeoutSeconds        int  `yaml:"timeout_seconds"`
	Content               bool `yaml:"content"`
	ContentTimeoutSeconds int  `yaml:"content_timeout_seconds"`
}

type DeliveryConfig struct {
	OutputDir   string     `yaml:"output_dir"`
	KeepDays    int        `yaml:"keep_days"`
	KindleEmail string     `yaml:"kindle_email"`
	SenderEmail string     `yaml:"sender_email"`
	SMTP        SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for morningbyte.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "morningbyte")
}

// DataDir returns the XDG data directory for morningbyte.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "morningbyte")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/morningbyte/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'morningbyte init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			HackerNews: SourceConfig{Enabled: true, MaxItems: 15},
			Reddit: SourceConfig{
				Enabled:    true,
				MaxItems:   10,
				Subreddits: []string{"programming", "technology", "MachineLearning"},
			},
			Lobsters: SourceConfig{Enabled: true, MaxItems: 10},
			DevTo: SourceConfig{
				Enabled:  true,
				MaxItems: 10,
				Tags:     []string{"go", "python", "ai"},
			},
			RSS: SourceConfig{Enabled: true, MaxItems: 5},
		},
		Digest: DigestConfig{
			Title:                 "Morning Byte",
			Subtitle:              "Your Daily Tech Digest",
			MaxArticlesPerSection: 15,
			IncludeScores:         true,
			IncludeCommentsLink:   true,
		},
		Fetch: FetchConfig{
			TimeoutSeconds:        30,
			ContentTimeoutSeconds: 15,
		},
		Delivery: DeliveryConfig{
			OutputDir: "./output",
			KeepDays:  7,
			SMTP: SMTPConfig{
				Host:        "smtp.gmail.com",
				Port:        587,
				PasswordEnv: "SMTP_PASSWORD",
			},
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks the run preconditions the core pipeline assumes.
func (c *Config) Validate() error {
	enabled := c.Enabled()
	if len(enabled) == 0 {
		return errors.New("no sources enabled")
	}
	for _, sc := range enabled {
		if sc.MaxItems < 0 {
			return errors.New("max_items must be non-negative")
		}
	}
	return nil
}

// Enabled returns the enabled source configs in section order.
func (c *Config) Enabled() []SourceConfig {
	var out []SourceConfig
	for _, sc := range []SourceConfig{
		c.Sources.HackerNews,
		c.Sources.Reddit,
		c.Sources.Lobsters,
		c.Sources.DevTo,
		c.Sources.RSS,
	} {
		if sc.Enabled {
			out = append(out, sc)
		}
	}
	return out
}

// AdapterTimeout returns the per-adapter fetch timeout.
func (c *Config) AdapterTimeout() time.Duration {
	if c.Fetch.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ContentTimeout returns the per-request timeout for content enrichment.
func (c *Config) ContentTimeout() time.Duration {
	if c.Fetch.ContentTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Fetch.ContentTimeoutSeconds) * time.Second
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
