// Package config resolves runtime settings from defaults, the environment
// and an optional .env file. Command-line flags are layered on top by the
// strand command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/strand/internal/app"
	"github.com/ayusman/strand/internal/capture"
	"github.com/ayusman/strand/internal/link"
	"github.com/joho/godotenv"
)

// Environment variables read by FromEnv.
const (
	EnvSource        = "STRAND_SOURCE"
	EnvSerialPort    = "STRAND_SERIAL_PORT"
	EnvBaud          = "STRAND_BAUD"
	EnvProfile       = "STRAND_PROFILE"
	EnvTimeout       = "STRAND_TIMEOUT"
	EnvOnReadFailure = "STRAND_ON_READ_FAILURE"
	EnvDebug         = "STRAND_DEBUG"
	EnvWindow        = "STRAND_WINDOW"
	EnvHTTP          = "STRAND_HTTP"
	EnvStaticDir     = "STRAND_STATIC_DIR"
	EnvTray          = "STRAND_TRAY"
	EnvLogLevel      = "STRAND_LOG_LEVEL"
	EnvLogFormat     = "STRAND_LOG_FORMAT"
	EnvLogFile       = "STRAND_LOG_FILE"
)

// DefaultSource is the ESP32-CAM capture route on its own access point.
const DefaultSource = "http://192.168.4.1/capture"

// Config carries every runtime setting of the strand command.
type Config struct {
	Source     string
	SerialPort string
	Baud       uint
	Profile    string
	// Timeout bounds each network capture request. Zero means the profile's.
	Timeout time.Duration
	// OnReadFailure overrides the profile's policy when set ("stop" or "retry").
	OnReadFailure string

	Debug     bool
	Window    bool
	HTTPAddr  string
	StaticDir string
	Tray      bool

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Source:     DefaultSource,
		SerialPort: "/dev/ttyACM0",
		Baud:       link.DefaultBaudRate,
		Profile:    "core",
		Window:     true,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// LoadDotEnv loads variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays environment variables on c. lookup is usually os.LookupEnv.
func (c Config) FromEnv(lookup func(string) (string, bool)) (Config, error) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(EnvSource, &c.Source)
	str(EnvSerialPort, &c.SerialPort)
	str(EnvProfile, &c.Profile)
	str(EnvOnReadFailure, &c.OnReadFailure)
	str(EnvHTTP, &c.HTTPAddr)
	str(EnvStaticDir, &c.StaticDir)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)
	str(EnvLogFile, &c.LogFile)
	boolean(EnvDebug, &c.Debug)
	boolean(EnvWindow, &c.Window)
	boolean(EnvTray, &c.Tray)

	if v, ok := lookup(EnvBaud); ok && v != "" {
		baud, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvBaud, err))
		} else {
			c.Baud = uint(baud)
		}
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTimeout, err))
		} else {
			c.Timeout = d
		}
	}

	return c, errors.Join(errs...)
}

// Validate checks the settings that can be checked without touching devices.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return errors.New("source must not be empty")
	}
	if c.Baud == 0 {
		return errors.New("baud rate must be positive")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if _, err := app.ProfileByName(c.Profile); err != nil {
		return err
	}
	if c.OnReadFailure != "" {
		if _, err := app.ParseReadFailurePolicy(c.OnReadFailure); err != nil {
			return err
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// ResolveProfile returns the named profile with the timeout and read-failure
// overrides applied.
func (c Config) ResolveProfile() (app.Profile, error) {
	p, err := app.ProfileByName(c.Profile)
	if err != nil {
		return app.Profile{}, err
	}
	if c.Timeout > 0 {
		p.Timeout = c.Timeout
	}
	if p.Timeout <= 0 {
		p.Timeout = capture.DefaultTimeout
	}
	if c.OnReadFailure != "" {
		policy, err := app.ParseReadFailurePolicy(c.OnReadFailure)
		if err != nil {
			return app.Profile{}, err
		}
		p.OnReadFailure = policy
	}
	return p, nil
}
