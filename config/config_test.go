package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdir moves into an empty directory so no stray .env is loaded.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8080" || cfg.MetricsAddr != ":9090" {
		t.Errorf("addrs = %q %q", cfg.ListenAddr, cfg.MetricsAddr)
	}
	if cfg.MarkerBackend != BackendMemory {
		t.Errorf("backend = %q", cfg.MarkerBackend)
	}
	if cfg.PublishSchedule != "30 17 * * 1-5" {
		t.Errorf("schedule = %q", cfg.PublishSchedule)
	}
}

func TestLoadPrefixedAndPlain(t *testing.T) {
	chdir(t)
	t.Setenv("BHAVCOPY_LISTEN_ADDR", ":7000")
	t.Setenv("MARKER_BACKEND", "SQLite")
	t.Setenv("BHAVCOPY_SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("listen = %q", cfg.ListenAddr)
	}
	if cfg.MarkerBackend != BackendSQLite || cfg.SQLitePath != "/tmp/x.db" {
		t.Errorf("backend = %q path = %q", cfg.MarkerBackend, cfg.SQLitePath)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	env := "BHAVCOPY_HOLIDAY_FILE=holidays.yaml\nBHAVCOPY_LOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("BHAVCOPY_HOLIDAY_FILE")
		os.Unsetenv("BHAVCOPY_LOG_LEVEL")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HolidayFile != "holidays.yaml" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{MarkerBackend: BackendMemory, PublishSchedule: "30 17 * * 1-5", SQLitePath: "x.db", RedisAddr: "r:6379"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"ok", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.MarkerBackend = "etcd" }, "unknown MARKER_BACKEND"},
		{"redis without addr", func(c *Config) { c.MarkerBackend = BackendRedis; c.RedisAddr = "" }, "REDIS_ADDR"},
		{"sqlite without path", func(c *Config) { c.MarkerBackend = BackendSQLite; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"bad schedule", func(c *Config) { c.PublishSchedule = "at dusk" }, "PUBLISH_SCHEDULE"},
		{"half telegram", func(c *Config) { c.TelegramBotToken = "tok" }, "TELEGRAM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("err = %v, want substring %q", err, tt.errSub)
			}
		})
	}
}
