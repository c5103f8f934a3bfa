package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.DSN != "./data/settlebot.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Receipt.Timeout != 20*time.Second {
		t.Errorf("receipt timeout = %v", cfg.Receipt.Timeout)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
	if cfg.Bot.Workers != 8 || cfg.Bot.BroadcastLimit != 8 {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Error("serve without a telegram token should not validate")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlebot.yaml")
	yaml := `
telegram:
  token: from-file
storage:
  driver: Postgres
  dsn: postgres://localhost/settlebot
receipt:
  timeout: 5s
bot:
  workers: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SETTLEBOT_TELEGRAM_TOKEN", "from-env")
	t.Setenv("SETTLEBOT_BOT_BROADCAST_LIMIT", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("env should override the file: token = %q", cfg.Telegram.Token)
	}
	if cfg.Storage.Driver != DriverPostgres {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Receipt.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Receipt.Timeout)
	}
	if cfg.Bot.Workers != 2 || cfg.Bot.BroadcastLimit != 3 {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe failed: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }, wantErr: "unknown storage driver"},
		{name: "empty dsn", mutate: func(c *Config) { c.Storage.DSN = "" }, wantErr: "storage.dsn"},
		{name: "no workers", mutate: func(c *Config) { c.Bot.Workers = 0 }, wantErr: "bot.workers"},
		{name: "no broadcast", mutate: func(c *Config) { c.Bot.BroadcastLimit = -1 }, wantErr: "bot.broadcast_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			cfg.Telegram.Token = "x"
			tt.mutate(cfg)

			err = cfg.ValidateServe()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateServe() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
