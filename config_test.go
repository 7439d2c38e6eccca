package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig() = %v; want nil", err)
	}
	if cfg.listen != ":8888" {
		t.Errorf("listen = %q; want :8888", cfg.listen)
	}
	if cfg.nav.LiveInterval != 4*time.Second {
		t.Errorf("live interval = %s; want 4s", cfg.nav.LiveInterval)
	}
	if cfg.nav.SimulationInterval != 3*time.Second {
		t.Errorf("simulation interval = %s; want 3s", cfg.nav.SimulationInterval)
	}
	if cfg.nav.LiveSteps != 2 {
		t.Errorf("live steps = %d; want 2", cfg.nav.LiveSteps)
	}
	if cfg.xmpp.Enabled() {
		t.Errorf("xmpp enabled without configuration")
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("ROUTES_API_KEY", "secret")
	t.Setenv("LIVE_INTERVAL", "10s")
	t.Setenv("DEVICE_URL", "http://192.0.2.10/cmd")

	cfg, err := parseConfig([]string{"-live-steps", "3"})
	if err != nil {
		t.Fatalf("parseConfig() = %v; want nil", err)
	}
	if cfg.routesApiKey != "secret" {
		t.Errorf("routes api key = %q; want secret", cfg.routesApiKey)
	}
	if cfg.nav.LiveInterval != 10*time.Second {
		t.Errorf("live interval = %s; want 10s", cfg.nav.LiveInterval)
	}
	if cfg.deviceUrl != "http://192.0.2.10/cmd" {
		t.Errorf("device url = %q; want http://192.0.2.10/cmd", cfg.deviceUrl)
	}
	if cfg.nav.LiveSteps != 3 {
		t.Errorf("live steps = %d; want 3", cfg.nav.LiveSteps)
	}
}

func TestParseConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cyclar.conf")
	if err := os.WriteFile(file, []byte("xmpp-jid bot@example.org\nxmpp-password pwd\nxmpp-to rider@example.org\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig([]string{"-config", file})
	if err != nil {
		t.Fatalf("parseConfig() = %v; want nil", err)
	}
	if !cfg.xmpp.Enabled() {
		t.Errorf("xmpp not enabled from config file")
	}
}
