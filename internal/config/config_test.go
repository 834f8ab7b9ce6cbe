package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.SpoolDir != "" {
		t.Errorf("SpoolDir = %q, want empty", cfg.SpoolDir)
	}
	if cfg.HandleTimeout != DefaultHandleTimeout {
		t.Errorf("HandleTimeout = %s", cfg.HandleTimeout)
	}
	if cfg.PrintWidth != 384 {
		t.Errorf("PrintWidth = %d", cfg.PrintWidth)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yml")
	body := "listen_addr: 127.0.0.1:9000\nspool_dir: /tmp/prints\nhandle_timeout: 5s\nqueue_size: 3\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BERGBRIDGE_QUEUE_SIZE", "9")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.SpoolDir != "/tmp/prints" {
		t.Errorf("SpoolDir = %q", cfg.SpoolDir)
	}
	if cfg.HandleTimeout != 5*time.Second {
		t.Errorf("HandleTimeout = %s", cfg.HandleTimeout)
	}
	if cfg.QueueSize != 9 {
		t.Errorf("QueueSize = %d, want env override 9", cfg.QueueSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		ListenAddr:    ":1",
		PrintWidth:    384,
		HandleTimeout: time.Second,
		QueueSize:     1,
		MaxFrameSize:  1,
		LogLevel:      "warn",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := []func(c *Config){
		func(c *Config) { c.ListenAddr = "" },
		func(c *Config) { c.PrintWidth = 0 },
		func(c *Config) { c.HandleTimeout = 0 },
		func(c *Config) { c.QueueSize = -1 },
		func(c *Config) { c.MaxFrameSize = 0 },
		func(c *Config) { c.LogLevel = "chatty" },
	}
	for i, mutate := range bad {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
