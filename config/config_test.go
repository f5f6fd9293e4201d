package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
api:
  addr: ":9090"
  token: "secret"
database:
  backend: memory
mqtt:
  broker: tcp://localhost:1883
  client_id: dispatcher
  ack_topic: driver/ack
routing:
  mode: http
  base_url: http://localhost:8000
dispatch:
  station_lat: 21.0278
  station_lng: 105.8342
  station_address: Central Station
slots:
  slot_duration_minutes: 30
logging:
  backend: sqlite
  path: dispatch.db
metrics:
  prometheus_enabled: true
  prometheus_port: ":2112"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Addr != ":9090" || cfg.API.Token != "secret" {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("mqtt broker = %s", cfg.MQTT.Broker)
	}
	if cfg.Routing.Mode != "http" || cfg.Routing.BaseURL != "http://localhost:8000" {
		t.Errorf("routing = %+v", cfg.Routing)
	}
	if cfg.Slots.SlotDurationMinutes != 30 {
		t.Errorf("slot minutes = %d, want 30", cfg.Slots.SlotDurationMinutes)
	}
	if cfg.Logging.Backend != "sqlite" {
		t.Errorf("logging backend = %s", cfg.Logging.Backend)
	}
	if !cfg.Metrics.PrometheusEnabled {
		t.Error("expected prometheus enabled")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", "dispatch:\n  station_lat: 21.0\n  station_lng: 105.8\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("api addr default = %s", cfg.API.Addr)
	}
	if cfg.Database.Backend != "memory" {
		t.Errorf("database backend default = %s", cfg.Database.Backend)
	}
	if cfg.Slots.SlotDurationMinutes != 60 {
		t.Errorf("slot minutes default = %d", cfg.Slots.SlotDurationMinutes)
	}
	if cfg.Routing.Mode != "nearest" {
		t.Errorf("routing mode default = %s", cfg.Routing.Mode)
	}
	if cfg.Dispatch.AckTimeoutSeconds != 5 {
		t.Errorf("ack timeout default = %d", cfg.Dispatch.AckTimeoutSeconds)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SHUTTLE_API__ADDR", ":7070")
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Addr != ":7070" {
		t.Errorf("env override lost, addr = %s", cfg.API.Addr)
	}
}

func TestLoadRejects(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "x = 1")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := Load(writeConfig(t, "config.yaml", "database:\n  backend: oracle\n")); err == nil {
		t.Error("expected error for unknown database backend")
	}
	if _, err := Load(writeConfig(t, "config.yaml", "database:\n  backend: postgres\n")); err == nil {
		t.Error("expected error for postgres backend without dsn")
	}
	if _, err := Load(writeConfig(t, "config.yaml", "slots:\n  slot_duration_minutes: 7\n")); err == nil {
		t.Error("expected error for non-divisor slot width")
	}
}
