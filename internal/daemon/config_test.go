package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8427 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8427)
	}
	if cfg.Engine.RevivalCost != 50 {
		t.Errorf("Engine.RevivalCost = %d, want %d", cfg.Engine.RevivalCost, 50)
	}
	if cfg.Engine.SeedCoins != 100 {
		t.Errorf("Engine.SeedCoins = %d, want %d", cfg.Engine.SeedCoins, 100)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfigFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `
[api]
port = 9000

[engine]
revival_cost = 80
timezone = "UTC"

[notifications]
max_per_day = 5
quiet_start = "22:00"
quiet_end = "08:00"
`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASCEND_API_PORT", "9100")
	t.Setenv("ASCEND_LOG_LEVEL", "debug")

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error: %v", err)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want env override 9100", cfg.API.Port)
	}
	if cfg.Engine.RevivalCost != 80 {
		t.Errorf("Engine.RevivalCost = %d, want 80", cfg.Engine.RevivalCost)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want default kept", cfg.API.Host)
	}
	p := cfg.NotificationPolicy()
	if p.MaxPerDay != 5 || p.QuietStart != "22:00" || p.QuietEnd != "08:00" {
		t.Errorf("NotificationPolicy() = %+v", p)
	}
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"syntax", "[api\nport = 1"},
		{"port", "[api]\nport = 70000"},
		{"timezone", "[engine]\ntimezone = \"Mars/Olympus\""},
		{"log level", "[logging]\nlevel = \"loud\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.raw), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfigFrom(path); err == nil {
				t.Error("LoadConfigFrom() error = nil, want error")
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("ASCEND_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Engine.RevivalCost = 75
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.Engine.RevivalCost != 75 {
		t.Errorf("Engine.RevivalCost = %d, want 75", got.Engine.RevivalCost)
	}
}
