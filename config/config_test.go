package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultEmbedded(t *testing.T) {
	dir := t.TempDir()
	old, _ := os.Getwd()
	defer os.Chdir(old)
	os.Chdir(dir)

	cfg := Load("")
	if cfg.GetUserAgent() == "" {
		t.Fatal("expected a non-empty default user agent")
	}
	if cfg.GetSpecStrict() {
		t.Fatal("default spec_strict should be false")
	}
}

func TestSetAndGetValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yml")
	cfg := Load(path)

	cfg.SetValue([]string{"host", "http_port"}, 1900)
	if cfg.GetHTTPPort() != 1900 {
		t.Fatalf("GetHTTPPort() = %d, want 1900", cfg.GetHTTPPort())
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to be persisted at %s: %v", path, err)
	}
}

func TestGetDeviceUDNPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yml")
	cfg := Load(path)

	udn1 := cfg.GetDeviceUDN("MediaServer", "demo")
	udn2 := cfg.GetDeviceUDN("MediaServer", "demo")
	if udn1 != udn2 {
		t.Fatalf("expected stable UDN across calls, got %q then %q", udn1, udn2)
	}

	reloaded := Load(path)
	udn3 := reloaded.GetDeviceUDN("MediaServer", "demo")
	if udn3 != udn1 {
		t.Fatalf("expected UDN to survive reload, got %q want %q", udn3, udn1)
	}
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("UPNPCORE_CONFIG__HOST__HTTP_PORT", "4004")
	defer os.Unsetenv("UPNPCORE_CONFIG__HOST__HTTP_PORT")

	cfg := Load(filepath.Join(dir, "cfg.yml"))
	if cfg.GetHTTPPort() != 4004 {
		t.Fatalf("env override not applied, got %d", cfg.GetHTTPPort())
	}
}
