package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/strand/internal/app"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	c := Default()

	if c.Source != DefaultSource {
		t.Errorf("Source = %q, want %q", c.Source, DefaultSource)
	}
	if c.Baud != 9600 {
		t.Errorf("Baud = %d, want 9600", c.Baud)
	}
	if c.Profile != "core" || !c.Window {
		t.Errorf("Profile/Window = %q/%v", c.Profile, c.Window)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		EnvSource:        "1",
		EnvSerialPort:    "/dev/ttyUSB0",
		EnvBaud:          "115200",
		EnvProfile:       "prototype",
		EnvTimeout:       "2s",
		EnvOnReadFailure: "stop",
		EnvWindow:        "false",
		EnvTray:          "true",
		EnvHTTP:          ":8080",
		EnvLogFormat:     "json",
		EnvLogLevel:      "",
	}

	c, err := Default().FromEnv(mapLookup(env))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if c.Source != "1" || c.SerialPort != "/dev/ttyUSB0" || c.Baud != 115200 {
		t.Errorf("source/port/baud = %q/%q/%d", c.Source, c.SerialPort, c.Baud)
	}
	if c.Profile != "prototype" || c.Timeout != 2*time.Second || c.OnReadFailure != "stop" {
		t.Errorf("profile/timeout/policy = %q/%v/%q", c.Profile, c.Timeout, c.OnReadFailure)
	}
	if c.Window || !c.Tray || c.HTTPAddr != ":8080" {
		t.Errorf("window/tray/http = %v/%v/%q", c.Window, c.Tray, c.HTTPAddr)
	}
	if c.LogFormat != "json" {
		t.Errorf("LogFormat = %q", c.LogFormat)
	}
	if c.LogLevel != "info" {
		t.Errorf("empty env value should keep default, LogLevel = %q", c.LogLevel)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad baud", env: map[string]string{EnvBaud: "fast"}},
		{name: "bad timeout", env: map[string]string{EnvTimeout: "5"}},
		{name: "bad bool", env: map[string]string{EnvDebug: "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Default().FromEnv(mapLookup(tt.env)); err == nil {
				t.Error("FromEnv() error = nil, want error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "empty source", modify: func(c *Config) { c.Source = " " }},
		{name: "zero baud", modify: func(c *Config) { c.Baud = 0 }},
		{name: "negative timeout", modify: func(c *Config) { c.Timeout = -time.Second }},
		{name: "unknown profile", modify: func(c *Config) { c.Profile = "ml" }},
		{name: "unknown policy", modify: func(c *Config) { c.OnReadFailure = "ignore" }},
		{name: "unknown log format", modify: func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestResolveProfile(t *testing.T) {
	t.Run("profile defaults", func(t *testing.T) {
		c := Default()
		c.Profile = "prototype"

		p, err := c.ResolveProfile()
		if err != nil {
			t.Fatalf("ResolveProfile() error = %v", err)
		}
		if p.OnReadFailure != app.RetryOnReadFailure {
			t.Errorf("OnReadFailure = %v, want retry", p.OnReadFailure)
		}
		if p.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", p.Timeout)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		c := Default()
		c.Profile = "prototype"
		c.OnReadFailure = "stop"
		c.Timeout = time.Second

		p, err := c.ResolveProfile()
		if err != nil {
			t.Fatalf("ResolveProfile() error = %v", err)
		}
		if p.OnReadFailure != app.StopOnReadFailure {
			t.Errorf("OnReadFailure = %v, want stop", p.OnReadFailure)
		}
		if p.Timeout != time.Second {
			t.Errorf("Timeout = %v, want 1s", p.Timeout)
		}
		if p.Detector.Threshold != 0.02 {
			t.Errorf("detector config should stay the prototype's, threshold = %v", p.Detector.Threshold)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadDotEnv() error = %v", err)
		}
	})

	t.Run("loads without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "STRAND_TEST_FROM_FILE=file\nSTRAND_TEST_PRESET=file\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write .env: %v", err)
		}

		t.Setenv("STRAND_TEST_PRESET", "env")
		t.Setenv("STRAND_TEST_FROM_FILE", "")
		os.Unsetenv("STRAND_TEST_FROM_FILE")

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("LoadDotEnv() error = %v", err)
		}

		if got := os.Getenv("STRAND_TEST_FROM_FILE"); got != "file" {
			t.Errorf("STRAND_TEST_FROM_FILE = %q, want file", got)
		}
		if got := os.Getenv("STRAND_TEST_PRESET"); got != "env" {
			t.Errorf("STRAND_TEST_PRESET = %q, want env", got)
		}
	})
}
