package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(t.TempDir())
	if cfg.AppPort != "9000" || cfg.DataDir != "data" || cfg.CronSpec != "0 */6 * * *" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Translate || cfg.TranslateTarget != "en" || cfg.IncrementalPages != 1 {
		t.Fatalf("unexpected translate defaults: %+v", cfg)
	}
	p := cfg.RetryPolicy()
	if p.MaxAttempts != 3 || p.RetryDelay != 5*time.Second || p.RateLimit != 2*time.Second || p.Timeout != 30*time.Second {
		t.Fatalf("unexpected retry policy: %+v", p)
	}
	if cfg.RedisAddr != "" || cfg.PostgresDSN != "" {
		t.Fatalf("optional backends should be off by default: %+v", cfg)
	}
}

func TestLoadReadsAuthAndPorts(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("APP_BASIC_USER", "user")
	t.Setenv("APP_BASIC_PASS", "pass")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_DELAY", "250ms")
	t.Setenv("TRANSLATE", "false")

	cfg := load(t.TempDir())
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("BasicAuthUser/Pass not loaded correctly: %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.Delay != 250*time.Millisecond {
		t.Fatalf("retry env not applied: %+v", cfg.Retry)
	}
	if cfg.Translate {
		t.Fatalf("TRANSLATE=false not applied")
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "data_dir: /var/lib/estatenews\nincremental_pages: 4\ncron_spec: \"*/30 * * * *\"\nretry:\n  rate_limit: 1s\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CRON_SPEC", "0 * * * *")

	cfg := load(dir)
	if cfg.DataDir != "/var/lib/estatenews" || cfg.IncrementalPages != 4 {
		t.Fatalf("config file not applied: %+v", cfg)
	}
	if cfg.Retry.RateLimit != time.Second || cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("nested retry config = %+v", cfg.Retry)
	}
	// 环境变量覆盖配置文件
	if cfg.CronSpec != "0 * * * *" {
		t.Fatalf("CronSpec = %q, env should win", cfg.CronSpec)
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{FrontendOrigins: " http://a.example , ,http://b.example"}
	got := cfg.Origins()
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("Origins = %v", got)
	}
	if got := (&Config{}).Origins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("empty origins = %v", got)
	}
}
