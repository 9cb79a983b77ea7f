package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/catalog"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/session"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/configutil"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/telemetry"
)

const defaultConfigPath = "~/.config/hmcpl/config.json5"

const (
	envBarcode = "HMCPL_BARCODE"
	envPIN     = "HMCPL_PIN"
	envBaseURL = "HMCPL_BASE_URL"
)

type Config struct {
	BaseURL        string `json:"base_url"`
	Barcode        string `json:"barcode"`
	PIN            string `json:"pin"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// Headless selects replay mode: the saved browser session is restored in a headless
	// browser and every page is rendered.
	Headless bool `json:"headless"`
	// StateDir holds the session files, the home directory when empty.
	StateDir   string               `json:"state_dir"`
	ChromePath string               `json:"chrome_path"`
	Otlp       telemetry.OtlpConfig `json:"otlp"`
}

// loadConfig reads the config file at `path` and overlays the environment. A missing file is
// only an error when the path was given explicitly.
func loadConfig(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	path, err := configutil.ExpandHome(path)
	if err != nil {
		return Config{}, err
	}

	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if v, ok := lookupEnv(envBarcode); ok && v != "" {
		config.Barcode = v
	}
	if v, ok := lookupEnv(envPIN); ok && v != "" {
		config.PIN = v
	}
	if v, ok := lookupEnv(envBaseURL); ok && v != "" {
		config.BaseURL = v
	}

	if config.BaseURL == "" {
		config.BaseURL = catalog.DefaultBaseURL
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 60
	}
	if config.StateDir == "" {
		config.StateDir = "~"
	}
	config.StateDir, err = configutil.ExpandHome(config.StateDir)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Barcode) == "" || c.PIN == "" {
		return &session.ConfigError{Message: fmt.Sprintf(
			"%s and %s environment variables must be set, or barcode and pin in the config file",
			envBarcode, envPIN,
		)}
	}
	return nil
}

func (c Config) mode(headless bool) session.Mode {
	if headless || c.Headless {
		return session.Replay
	}
	return session.Interactive
}

func (c Config) telemetry() telemetry.Config {
	return telemetry.Config{Otlp: c.Otlp}
}

func (c Config) catalog(headless bool) catalog.Config {
	return catalog.Config{
		BaseURL:    c.BaseURL,
		Barcode:    c.Barcode,
		PIN:        c.PIN,
		Mode:       c.mode(headless),
		Paths:      session.DefaultPaths(filepath.Clean(c.StateDir)),
		Timeout:    time.Duration(c.TimeoutSeconds) * time.Second,
		ChromePath: c.ChromePath,
	}
}
