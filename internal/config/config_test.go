package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.DeviceName != "mcpd" || cfg.Server.MaxSessions != 16 {
		t.Fatalf("unexpected defaults: %+v", cfg.Server)
	}
	if !cfg.Transports.TCP.Enabled || cfg.Transports.TCP.Addr != ":9180" {
		t.Fatalf("tcp defaults: %+v", cfg.Transports.TCP)
	}
	if cfg.Server.ParseErrorBudget != 8 {
		t.Fatalf("parse error budget: %d", cfg.Server.ParseErrorBudget)
	}
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpd.toml")
	body := `
[server]
device_name = "bench-rig"
max_sessions = 4
operation_timeout_ms = 500

[transports.tcp]
enabled = false

[transports.serial]
enabled = true
device = "/dev/ttyACM0"
baud = 921600

[relay]
enabled = true
stream = "rig:events"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.DeviceName != "bench-rig" || cfg.Server.MaxSessions != 4 {
		t.Fatalf("server overrides lost: %+v", cfg.Server)
	}
	if cfg.Server.OperationTimeoutMs != 500 {
		t.Fatalf("operation timeout: %d", cfg.Server.OperationTimeoutMs)
	}
	if cfg.Transports.TCP.Enabled {
		t.Fatalf("tcp should be disabled")
	}
	if !cfg.Transports.Serial.Enabled || cfg.Transports.Serial.Baud != 921600 {
		t.Fatalf("serial overrides lost: %+v", cfg.Transports.Serial)
	}
	// 文件未提及的字段保留缺省
	if cfg.Server.MaxTools != 64 || cfg.Relay.Addr != "127.0.0.1:6379" {
		t.Fatalf("untouched defaults lost")
	}
	if cfg.Relay.Stream != "rig:events" {
		t.Fatalf("relay stream: %s", cfg.Relay.Stream)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpd.toml")
	body := `
[server]
max_sessions = 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("max_sessions=0 must fail validation")
	}
}

func TestLoadRejectsBadParity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpd.toml")
	body := `
[transports.serial]
parity = "marks"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("bogus parity must fail validation")
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpd.toml")
	if err := os.WriteFile(path, []byte("[server\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("broken toml must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MCPD_DEVICE_NAME", "env-rig")
	t.Setenv("MCPD_TCP_ADDR", ":7000")
	t.Setenv("MCPD_MAX_SESSIONS", "3")
	t.Setenv("MCPD_SESSION_TIMEOUT_MS", "2500")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.DeviceName != "env-rig" {
		t.Fatalf("device name: %s", cfg.Server.DeviceName)
	}
	if cfg.Transports.TCP.Addr != ":7000" {
		t.Fatalf("tcp addr: %s", cfg.Transports.TCP.Addr)
	}
	if cfg.Server.MaxSessions != 3 || cfg.Server.SessionTimeoutMs != 2500 {
		t.Fatalf("numeric env overrides lost: %+v", cfg.Server)
	}
}

func TestEnvIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("MCPD_MAX_SESSIONS", "many")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.MaxSessions != 16 {
		t.Fatalf("garbage env must be ignored, got %d", cfg.Server.MaxSessions)
	}
}
