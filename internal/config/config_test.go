package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
server:
  port: 8081

whatsapp:
  url: https://evolution.example.com/
  instance: jk
  api_key: secret

store:
  parcels_url: https://sheets.example.com/parcels
  history_url: https://sheets.example.com/history
  log_url: https://sheets.example.com/log
  timeout_sec: 5

groups:
  laundry: ["120363416759586760@g.us"]
  parcels: ["12036248264829284@g.us"]

sessions:
  idle_timeout_min: 5

laundry:
  wash_duration_min: 50
  warning_lead_min: 5
  max_load_kg: 10
  info_delay_sec: 20
  timezone: UTC
  state_path: /var/lib/condobot/lavanderia.json

database:
  driver: mysql
  host: 10.0.0.5

announcements:
  - cron: "0 18 * * 1,3,5"
    groups: ["120363416759586760@g.us"]
    text: "Trash goes out tonight."
`

const minimalYAML = `
whatsapp:
  url: https://evolution.example.com
  instance: jk
groups:
  laundry: ["laundry@g.us"]
`

func noEnv(string) (string, bool) { return "", false }

func TestParse_FullConfig(t *testing.T) {
	cfg, err := parse([]byte(fullYAML), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8081)
	}
	if cfg.WhatsApp.URL != "https://evolution.example.com" {
		t.Errorf("WhatsApp.URL = %q, want trailing slash trimmed", cfg.WhatsApp.URL)
	}
	if cfg.Store.Timeout() != 5*time.Second {
		t.Errorf("Store.Timeout() = %v, want 5s", cfg.Store.Timeout())
	}
	if cfg.Sessions.IdleTimeout() != 5*time.Minute {
		t.Errorf("IdleTimeout() = %v, want 5m", cfg.Sessions.IdleTimeout())
	}
	if cfg.Laundry.WashDuration() != 50*time.Minute {
		t.Errorf("WashDuration() = %v, want 50m", cfg.Laundry.WashDuration())
	}
	if cfg.Laundry.WarningLead() != 5*time.Minute {
		t.Errorf("WarningLead() = %v, want 5m", cfg.Laundry.WarningLead())
	}
	if cfg.Laundry.InfoDelay() != 20*time.Second {
		t.Errorf("InfoDelay() = %v, want 20s", cfg.Laundry.InfoDelay())
	}
	if cfg.Database.Driver != "mysql" || cfg.Database.Port != 3306 || cfg.Database.Name != "condobot" {
		t.Errorf("Database = %+v, want mysql defaults filled", cfg.Database)
	}
	if len(cfg.Announcements) != 1 {
		t.Fatalf("len(Announcements) = %d, want 1", len(cfg.Announcements))
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := parse([]byte(minimalYAML), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("Server.Port = %d, want 3001", cfg.Server.Port)
	}
	if cfg.Sessions.IdleTimeoutMin != 10 {
		t.Errorf("IdleTimeoutMin = %d, want 10", cfg.Sessions.IdleTimeoutMin)
	}
	if cfg.Laundry.WashDurationMin != 120 {
		t.Errorf("WashDurationMin = %d, want 120", cfg.Laundry.WashDurationMin)
	}
	if cfg.Laundry.WarningLeadMin != 10 {
		t.Errorf("WarningLeadMin = %d, want 10", cfg.Laundry.WarningLeadMin)
	}
	if cfg.Laundry.MaxLoadKg != 8 {
		t.Errorf("MaxLoadKg = %v, want 8", cfg.Laundry.MaxLoadKg)
	}
	if cfg.Laundry.Timezone != "America/Sao_Paulo" {
		t.Errorf("Timezone = %q, want America/Sao_Paulo", cfg.Laundry.Timezone)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "condobot.db" {
		t.Errorf("Database = %+v, want sqlite condobot.db", cfg.Database)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"EVOLUTION_URL":      "https://other.example.com",
		"EVOLUTION_API_KEY":  "from-env",
		"SHEETDB_ENCOMENDAS": "https://sheets.example.com/env-parcels",
		"HGBR_API_KEY":       "weather-key",
		"PORT":               "9000",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := parse([]byte(minimalYAML), lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WhatsApp.URL != "https://other.example.com" {
		t.Errorf("WhatsApp.URL = %q, want env value", cfg.WhatsApp.URL)
	}
	if cfg.WhatsApp.APIKey != "from-env" {
		t.Errorf("WhatsApp.APIKey = %q, want env value", cfg.WhatsApp.APIKey)
	}
	if cfg.Store.ParcelsURL != "https://sheets.example.com/env-parcels" {
		t.Errorf("Store.ParcelsURL = %q, want env value", cfg.Store.ParcelsURL)
	}
	if cfg.Laundry.WeatherAPIKey != "weather-key" {
		t.Errorf("WeatherAPIKey = %q, want env value", cfg.Laundry.WeatherAPIKey)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestParse_BadPortEnv(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "PORT" {
			return "eighty", true
		}
		return "", false
	}
	_, err := parse([]byte(minimalYAML), lookup)
	if err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing url", "whatsapp: {instance: jk}\ngroups: {laundry: [a]}", "whatsapp.url is required"},
		{"missing instance", "whatsapp: {url: http://x}\ngroups: {laundry: [a]}", "whatsapp.instance is required"},
		{"no groups", "whatsapp: {url: http://x, instance: jk}", "at least one laundry or parcels group"},
		{"parcels without store", "whatsapp: {url: http://x, instance: jk}\ngroups: {parcels: [p]}", "store.parcels_url is required"},
		{"overlapping group", "whatsapp: {url: http://x, instance: jk}\nstore: {parcels_url: http://s}\ngroups: {laundry: [a], parcels: [a]}", "assigned to both"},
		{"bad driver", "whatsapp: {url: http://x, instance: jk}\ngroups: {laundry: [a]}\ndatabase: {driver: postgres}", "not supported"},
		{"bad timezone", "whatsapp: {url: http://x, instance: jk}\ngroups: {laundry: [a]}\nlaundry: {timezone: Mars/Olympus}", "laundry.timezone"},
		{"warning too long", "whatsapp: {url: http://x, instance: jk}\ngroups: {laundry: [a]}\nlaundry: {wash_duration_min: 10, warning_lead_min: 10}", "warning_lead_min"},
		{"announcement missing cron", "whatsapp: {url: http://x, instance: jk}\ngroups: {laundry: [a]}\nannouncements: [{groups: [a], text: hi}]", "announcements[0].cron"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.yaml), noEnv)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := parse([]byte("whatsapp: [unterminated"), noEnv)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err.Error())
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "condobot.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WhatsApp.Instance != "jk" {
		t.Errorf("Instance = %q, want jk", cfg.WhatsApp.Instance)
	}
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("EVOLUTION_URL", "https://env.example.com")
	t.Setenv("EVOLUTION_INSTANCE", "env-instance")

	// Without groups validation must still fail, proving the env was read
	// and the missing file was tolerated.
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if strings.Contains(err.Error(), "whatsapp.url") {
		t.Errorf("error = %q, env URL should have been applied", err.Error())
	}
	if !strings.Contains(err.Error(), "at least one laundry or parcels group") {
		t.Errorf("error = %q, want groups validation error", err.Error())
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CONDOBOT_TEST_VAR=loaded\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CONDOBOT_TEST_VAR", "")
	os.Unsetenv("CONDOBOT_TEST_VAR")

	LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath)

	if got := os.Getenv("CONDOBOT_TEST_VAR"); got != "loaded" {
		t.Errorf("CONDOBOT_TEST_VAR = %q, want %q", got, "loaded")
	}
}
