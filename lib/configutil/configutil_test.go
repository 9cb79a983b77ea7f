package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseURL string            `json:"base_url"`
	Timeout int               `json:"timeout_seconds"`
	Headers map[string]string `json:"headers"`
}

func write(t *testing.T, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(contents), 0600))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	write(t, name, `{
		// comments and trailing commas are fine
		base_url: "https://catalog.example.org",
		timeout_seconds: 30,
	}`)
	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{BaseURL: "https://catalog.example.org", Timeout: 30}, config)

	write(t, filepath.Join(dir, "config.local.json5"), `{timeout_seconds: 90, headers: {a: "b"}}`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "https://catalog.example.org", config.BaseURL)
	require.Equal(t, 90, config.Timeout)
	require.Equal(t, map[string]string{"a": "b"}, config.Headers)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.local.json5"), `{base_url: "http://localhost"}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost", config.BaseURL)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	write(t, name, `{base_url: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "config.local.json5"), LocalPath(filepath.Join("a", "config.json5")))
	require.Equal(t, filepath.Join("a", "config.local"), LocalPath(filepath.Join("a", "config")))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandHome("~/.config/hmcpl")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config/hmcpl"), expanded)

	expanded, err = ExpandHome("/etc/hmcpl")
	require.NoError(t, err)
	require.Equal(t, "/etc/hmcpl", expanded)
}
