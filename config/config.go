package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is read when present and no --config flag is given
const DefaultPath = "socialfeed.toml"

// TomlAPI configures the feed API connection
type TomlAPI struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
}

// TomlFeed configures pagination and the acting user
type TomlFeed struct {
	PageSize    int    `toml:"page_size"`
	CurrentUser string `toml:"current_user"`
}

// TomlServer configures the web client
type TomlServer struct {
	Port     int    `toml:"port"`
	Hostname string `toml:"hostname"`
}

// Config represents the top-level configuration
type Config struct {
	API    TomlAPI    `toml:"api"`
	Feed   TomlFeed   `toml:"feed"`
	Server TomlServer `toml:"server"`
}

// Duration lets TOML files use strings such as "10s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		API: TomlAPI{
			URL:     "http://localhost:8000",
			Timeout: Duration{10 * time.Second},
		},
		Feed: TomlFeed{
			PageSize:    20,
			CurrentUser: "u01",
		},
		Server: TomlServer{
			Port:     3000,
			Hostname: "localhost",
		},
	}
}

// LoadConfig reads path on top of the defaults. A missing file at DefaultPath is not an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()
	if path == "" {
		path = DefaultPath
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks the values a client cannot work without
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.API.URL)
	}
	if c.API.Timeout.Duration <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Feed.PageSize < 1 || c.Feed.PageSize > 50 {
		return fmt.Errorf("page size must be between 1 and 50, got %d", c.Feed.PageSize)
	}
	if c.Feed.CurrentUser == "" {
		return errors.New("current user must be set")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}
