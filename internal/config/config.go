// Package config provides YAML-based configuration loading for condobot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level condobot configuration, loaded from condobot.yaml
// and overridden by environment variables.
type Config struct {
	Server        ServerConfig         `yaml:"server"`
	WhatsApp      WhatsAppConfig       `yaml:"whatsapp"`
	Store         StoreConfig          `yaml:"store"`
	Groups        GroupsConfig         `yaml:"groups"`
	Sessions      SessionsConfig       `yaml:"sessions"`
	Laundry       LaundryConfig        `yaml:"laundry"`
	Database      DatabaseConfig       `yaml:"database"`
	Announcements []AnnouncementConfig `yaml:"announcements"`
}

// ServerConfig holds the webhook listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// WhatsAppConfig holds the Evolution API credentials.
type WhatsAppConfig struct {
	URL      string `yaml:"url"`
	Instance string `yaml:"instance"`
	APIKey   string `yaml:"api_key"`
}

// StoreConfig holds the spreadsheet-backed record store endpoints.
type StoreConfig struct {
	ParcelsURL string `yaml:"parcels_url"`
	HistoryURL string `yaml:"history_url"`
	LogURL     string `yaml:"log_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// GroupsConfig is the static conversation allowlist for each workflow.
type GroupsConfig struct {
	Laundry []string `yaml:"laundry"`
	Parcels []string `yaml:"parcels"`
}

// SessionsConfig controls dialogue session expiry.
type SessionsConfig struct {
	IdleTimeoutMin int `yaml:"idle_timeout_min"`
}

// LaundryConfig controls the shared washing machine reservation.
type LaundryConfig struct {
	WashDurationMin int     `yaml:"wash_duration_min"`
	WarningLeadMin  int     `yaml:"warning_lead_min"`
	MaxLoadKg       float64 `yaml:"max_load_kg"`
	InfoDelaySec    int     `yaml:"info_delay_sec"`
	Timezone        string  `yaml:"timezone"`
	StatePath       string  `yaml:"state_path"`
	WeatherAPIKey   string  `yaml:"weather_api_key"`
	WeatherCity     string  `yaml:"weather_city"`
}

// DatabaseConfig selects where laundry state is persisted when no
// state_path is configured.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	Path   string `yaml:"path"`   // sqlite file
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
	// Password is read from DB_PASSWORD only.
	Password string `yaml:"-"`
}

// AnnouncementConfig is a recurring message posted to a set of groups.
type AnnouncementConfig struct {
	Cron   string   `yaml:"cron"`
	Groups []string `yaml:"groups"`
	Text   string   `yaml:"text"`
}

// IdleTimeout returns the session idle timeout.
func (s SessionsConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMin) * time.Minute
}

// WashDuration returns the fixed reservation length.
func (l LaundryConfig) WashDuration() time.Duration {
	return time.Duration(l.WashDurationMin) * time.Minute
}

// WarningLead returns how long before the end the holder is warned.
func (l LaundryConfig) WarningLead() time.Duration {
	return time.Duration(l.WarningLeadMin) * time.Minute
}

// InfoDelay returns the pause between paged informational messages.
func (l LaundryConfig) InfoDelay() time.Duration {
	return time.Duration(l.InfoDelaySec) * time.Second
}

// Timeout returns the per-request budget for record store calls.
func (s StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// LoadEnvFiles loads the first readable .env file from paths into the
// process environment. Variables already set are not overwritten.
func LoadEnvFiles(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file is not an error: configuration then comes from the
// environment alone.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config, applying environment
// overrides from the process environment.
func Parse(data []byte) (*Config, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides secrets and endpoints with environment variables, using
// the variable names the deployment already exports.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	overrides := map[string]*string{
		"EVOLUTION_URL":      &c.WhatsApp.URL,
		"EVOLUTION_INSTANCE": &c.WhatsApp.Instance,
		"EVOLUTION_API_KEY":  &c.WhatsApp.APIKey,
		"SHEETDB_ENCOMENDAS": &c.Store.ParcelsURL,
		"SHEETDB_HISTORICO":  &c.Store.HistoryURL,
		"SHEETDB_LOG":        &c.Store.LogURL,
		"HGBR_API_KEY":       &c.Laundry.WeatherAPIKey,
		"DB_PASSWORD":        &c.Database.Password,
	}
	for name, dst := range overrides {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT %q is not a number", v)
		}
		c.Server.Port = port
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	c.WhatsApp.URL = strings.TrimRight(c.WhatsApp.URL, "/")
	if c.Store.TimeoutSec == 0 {
		c.Store.TimeoutSec = 15
	}
	if c.Sessions.IdleTimeoutMin == 0 {
		c.Sessions.IdleTimeoutMin = 10
	}
	if c.Laundry.WashDurationMin == 0 {
		c.Laundry.WashDurationMin = 120
	}
	if c.Laundry.WarningLeadMin == 0 {
		c.Laundry.WarningLeadMin = 10
	}
	if c.Laundry.MaxLoadKg == 0 {
		c.Laundry.MaxLoadKg = 8
	}
	if c.Laundry.InfoDelaySec == 0 {
		c.Laundry.InfoDelaySec = 10
	}
	if c.Laundry.Timezone == "" {
		c.Laundry.Timezone = "America/Sao_Paulo"
	}
	if c.Laundry.WeatherCity == "" {
		c.Laundry.WeatherCity = "Viamão,RS"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "condobot.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "condobot"
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.WhatsApp.URL == "" {
		errs = append(errs, "whatsapp.url is required")
	}
	if c.WhatsApp.Instance == "" {
		errs = append(errs, "whatsapp.instance is required")
	}
	if len(c.Groups.Laundry) == 0 && len(c.Groups.Parcels) == 0 {
		errs = append(errs, "at least one laundry or parcels group is required")
	}
	if len(c.Groups.Parcels) > 0 && c.Store.ParcelsURL == "" {
		errs = append(errs, "store.parcels_url is required when parcels groups are configured")
	}
	seen := make(map[string]string)
	for _, g := range c.Groups.Laundry {
		seen[g] = "laundry"
	}
	for _, g := range c.Groups.Parcels {
		if seen[g] == "laundry" {
			errs = append(errs, fmt.Sprintf("group %q is assigned to both laundry and parcels", g))
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Sessions.IdleTimeoutMin < 0 {
		errs = append(errs, "sessions.idle_timeout_min must be positive")
	}
	if c.Laundry.WashDurationMin < 0 || c.Laundry.WarningLeadMin < 0 {
		errs = append(errs, "laundry durations must be positive")
	}
	if c.Laundry.WarningLeadMin >= c.Laundry.WashDurationMin {
		errs = append(errs, "laundry.warning_lead_min must be shorter than laundry.wash_duration_min")
	}
	if _, err := time.LoadLocation(c.Laundry.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("laundry.timezone %q: %v", c.Laundry.Timezone, err))
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	for i, a := range c.Announcements {
		if a.Cron == "" {
			errs = append(errs, fmt.Sprintf("announcements[%d].cron is required", i))
		}
		if a.Text == "" {
			errs = append(errs, fmt.Sprintf("announcements[%d].text is required", i))
		}
		if len(a.Groups) == 0 {
			errs = append(errs, fmt.Sprintf("announcements[%d].groups is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
