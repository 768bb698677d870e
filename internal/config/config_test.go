package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("expected default lock timeout 5s, got %v", cfg.LockTimeout)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Errorf("expected default read timeout 30s, got %v", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("expected no default write timeout, got %v", cfg.WriteTimeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("expected unlimited rate by default, got %d", cfg.RateLimit)
	}
	if cfg.StatsInterval != 0 {
		t.Errorf("expected stats disabled by default, got %v", cfg.StatsInterval)
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
addr: "127.0.0.1:9000"
root: /srv/downloads
rate_limit: 2MB
lock_timeout: 2s
write_timeout: 10m
stats_interval: 1m
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("expected addr 127.0.0.1:9000, got %s", cfg.Addr)
	}
	if cfg.Root != "/srv/downloads" {
		t.Errorf("expected root /srv/downloads, got %s", cfg.Root)
	}
	if cfg.RateLimit != 2*1024*1024 {
		t.Errorf("expected rate limit 2MB, got %d", cfg.RateLimit)
	}
	if cfg.LockTimeout != 2*time.Second {
		t.Errorf("expected lock timeout 2s, got %v", cfg.LockTimeout)
	}
	if cfg.WriteTimeout != 10*time.Minute {
		t.Errorf("expected write timeout 10m, got %v", cfg.WriteTimeout)
	}
	if cfg.StatsInterval != time.Minute {
		t.Errorf("expected stats interval 1m, got %v", cfg.StatsInterval)
	}
	// Untouched keys keep defaults.
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
addr = ":9090"
bucket = "s3://media?region=eu-west-1"
rate_limit = "512KB"
read_timeout = "15s"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.Addr)
	}
	if cfg.Bucket != "s3://media?region=eu-west-1" {
		t.Errorf("unexpected bucket %s", cfg.Bucket)
	}
	if cfg.RateLimit != 512*1024 {
		t.Errorf("expected rate limit 512KB, got %d", cfg.RateLimit)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("expected read timeout 15s, got %v", cfg.ReadTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RANGESERVE_ADDR", ":7000")
	t.Setenv("RANGESERVE_ROOT", "/data")
	t.Setenv("RANGESERVE_RATE_LIMIT", "1GB")
	t.Setenv("RANGESERVE_LOCK_TIMEOUT", "250ms")
	t.Setenv("RANGESERVE_STATS_INTERVAL", "30s")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Addr != ":7000" {
		t.Errorf("expected addr :7000, got %s", cfg.Addr)
	}
	if cfg.Root != "/data" {
		t.Errorf("expected root /data, got %s", cfg.Root)
	}
	if cfg.RateLimit != 1024*1024*1024 {
		t.Errorf("expected rate limit 1GB, got %d", cfg.RateLimit)
	}
	if cfg.LockTimeout != 250*time.Millisecond {
		t.Errorf("expected lock timeout 250ms, got %v", cfg.LockTimeout)
	}
	if cfg.StatsInterval != 30*time.Second {
		t.Errorf("expected stats interval 30s, got %v", cfg.StatsInterval)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("RANGESERVE_READ_TIMEOUT", "soon")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Root = "/srv"

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid root", func(c *Config) {}, false},
		{"valid bucket", func(c *Config) { c.Root = ""; c.Bucket = "mem://" }, false},
		{"missing addr", func(c *Config) { c.Addr = "" }, true},
		{"missing source", func(c *Config) { c.Root = "" }, true},
		{"both sources", func(c *Config) { c.Bucket = "mem://" }, true},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, true},
		{"zero lock timeout", func(c *Config) { c.LockTimeout = 0 }, true},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Root = "/srv"
	base.RateLimit = 1024

	merged := base.Merge(Config{
		Addr:      ":9999",
		RateLimit: 4096,
	})

	if merged.Root != "/srv" {
		t.Errorf("expected Root preserved, got %s", merged.Root)
	}
	if merged.LockTimeout != 5*time.Second {
		t.Errorf("expected LockTimeout preserved, got %v", merged.LockTimeout)
	}
	if merged.Addr != ":9999" {
		t.Errorf("expected Addr overridden, got %s", merged.Addr)
	}
	if merged.RateLimit != 4096 {
		t.Errorf("expected RateLimit overridden, got %d", merged.RateLimit)
	}

	// Choosing a bucket on the command line replaces a configured root.
	switched := base.Merge(Config{Bucket: "mem://"})
	if switched.Root != "" || switched.Bucket != "mem://" {
		t.Errorf("expected bucket to replace root, got root=%q bucket=%q", switched.Root, switched.Bucket)
	}
	if err := switched.Validate(); err != nil {
		t.Errorf("Validate after switch: %v", err)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"config.yaml": "invalid: [yaml: content",
		"config.toml": "addr = ",
		"rate.yaml":   "rate_limit: lots",
		"dur.yaml":    "lock_timeout: forever",
	} {
		path := writeConfig(t, name, content)
		if _, err := LoadFromFile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
