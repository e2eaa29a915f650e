package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIELDCAP_DB", "")
	t.Setenv("FIELDCAP_ADDR", "")
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.DBPath != "fieldcap.db" {
		t.Errorf("DBPath = %q, want fieldcap.db", cfg.DBPath)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FIELDCAP_DB", "/tmp/capture.db")
	t.Setenv("FIELDCAP_ADDR", "")
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.DBPath != "/tmp/capture.db" {
		t.Errorf("DBPath = %q, want /tmp/capture.db", cfg.DBPath)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
}

func TestLoadAddrWinsOverPort(t *testing.T) {
	t.Setenv("FIELDCAP_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q, want 127.0.0.1:7000", cfg.Addr)
	}
}
