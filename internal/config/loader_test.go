package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nhome_dir: /tmp/wingman\npost_stop_delay_ms: 123\nforce_shutdown_wait_timeout_ms: 7000\nqueue_check_interval_ms: 1000\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.HomeDir != "/tmp/wingman" || cfg.PostStopDelayMS != 123 || cfg.ForceShutdownWaitTimeoutMS != 7000 || cfg.QueueCheckIntervalMS != 1000 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","home_dir":"/m","post_stop_delay_ms":42,"force_shutdown_wait_timeout_ms":15000,"queue_check_interval_ms":500}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.HomeDir != "/m" || cfg.PostStopDelayMS != 42 || cfg.ForceShutdownWaitTimeoutMS != 15000 || cfg.QueueCheckIntervalMS != 500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nhome_dir=\"/x\"\npost_stop_delay_ms=9\nforce_shutdown_wait_timeout_ms=15000\nqueue_check_interval_ms=1000\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.HomeDir != "/x" || cfg.PostStopDelayMS != 9 || cfg.ForceShutdownWaitTimeoutMS != 15000 || cfg.QueueCheckIntervalMS != 1000 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
