package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/catalog"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/session"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport/transporttest"
)

func noEnv(string) (string, bool) {
	return "", false
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(name, []byte(contents), 0600))
	return name
}

func TestLoadConfig(t *testing.T) {
	name := writeConfig(t, `{
		barcode: "21234000123456",
		pin: "0000",
		timeout_seconds: 15,
		state_dir: "/tmp/hmcpl",
		headless: true,
	}`)

	env := map[string]string{envPIN: "1234"}
	config, err := loadConfig(name, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	require.Equal(t, "21234000123456", config.Barcode)
	require.Equal(t, "1234", config.PIN)
	require.Equal(t, catalog.DefaultBaseURL, config.BaseURL)
	require.Equal(t, 15, config.TimeoutSeconds)
	require.NoError(t, config.validate())

	cc := config.catalog(false)
	require.Equal(t, session.Replay, cc.Mode)
	require.Equal(t, session.DefaultPaths("/tmp/hmcpl"), cc.Paths)
	require.Equal(t, float64(15), cc.Timeout.Seconds())
}

func TestLoadConfigDefaults(t *testing.T) {
	// nothing exists at the default path inside a fresh home
	t.Setenv("HOME", t.TempDir())
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	config, err := loadConfig("", noEnv)
	require.NoError(t, err)
	require.Equal(t, home, config.StateDir)
	require.Equal(t, 60, config.TimeoutSeconds)
	require.Equal(t, session.Interactive, config.mode(false))
	require.Equal(t, session.Replay, config.mode(true))
	require.False(t, config.telemetry().Enabled())

	var configErr *session.ConfigError
	require.ErrorAs(t, config.validate(), &configErr)
	require.Contains(t, configErr.Error(), envBarcode)
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.json5"), noEnv)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckoutFilter(t *testing.T) {
	today := library.Date{Year: 2026, Month: 10, Day: 16}
	checkouts := []library.Checkout{
		{ID: "overdue", DueDate: library.NewDate(2026, 10, 10)},
		{ID: "soon", DueDate: library.NewDate(2026, 10, 18)},
		{ID: "later", DueDate: library.NewDate(2026, 11, 20)},
		{ID: "undated"},
	}
	ids := func(list []library.Checkout) []string {
		out := []string{}
		for _, c := range list {
			out = append(out, c.ID)
		}
		return out
	}

	require.Equal(t, []string{"overdue", "soon", "later", "undated"}, ids(checkoutFilter{}.apply(checkouts, today)))

	days := 3
	require.Equal(t, []string{"overdue", "soon"}, ids(checkoutFilter{dueSoon: &days}.apply(checkouts, today)))
	require.Equal(t, []string{"overdue"}, ids(checkoutFilter{overdue: true}.apply(checkouts, today)))
}

func TestHoldFilter(t *testing.T) {
	holds := []library.Hold{
		{ID: "a", Status: library.HoldAvailable},
		{ID: "b", Status: library.HoldPending},
		{ID: "c", Status: library.HoldInTransit},
	}
	require.Len(t, holdFilter{}.apply(holds), 3)
	require.Equal(t, []library.Hold{holds[0]}, holdFilter{ready: true}.apply(holds))
	require.Equal(t, []library.Hold{holds[1]}, holdFilter{pending: true}.apply(holds))
	require.Empty(t, holdFilter{ready: true, pending: true}.apply(holds))
}

func TestRender(t *testing.T) {
	position := 2
	holds := []library.Hold{{
		ID:             "h1",
		Title:          "The Left Hand of Darkness",
		Status:         library.HoldPending,
		Position:       &position,
		ExpirationDate: library.NewDate(2026, 12, 1),
	}}

	var out bytes.Buffer
	require.NoError(t, render(&out, holds, false))
	require.Contains(t, out.String(), `"title": "The Left Hand of Darkness"`)
	require.Contains(t, out.String(), `"position": 2`)

	out.Reset()
	require.NoError(t, render(&out, holds, true))
	require.Contains(t, out.String(), "The Left Hand of Darkness")
	require.Contains(t, out.String(), "2026-12-01")
	require.Contains(t, out.String(), "╭")

	out.Reset()
	require.NoError(t, render(&out, locationsOutput{Locations: []library.PickupLocation{{Value: "main", Label: "Main Library"}}}, false))
	require.Equal(t, "{\n  \"locations\": [\n    {\n      \"value\": \"main\",\n      \"label\": \"Main Library\"\n    }\n  ]\n}\n", out.String())

	out.Reset()
	require.NoError(t, render(&out, library.RenewResult{ItemID: "ils:1001", Success: true, Message: "Renewed"}, true))
	require.Contains(t, out.String(), "ils:1001")
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	require.Equal(t, 0, exitCode(context.Background(), nil, &stderr))
	require.Empty(t, stderr.String())

	require.Equal(t, 1, exitCode(context.Background(), errors.New("failed to login"), &stderr))
	require.Equal(t, "{\"error\":\"failed to login\"}\n", stderr.String())

	stderr.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, exitInterrupted, exitCode(ctx, context.Canceled, &stderr))
	require.Empty(t, stderr.String())
}

const menuData = `{"success": true, "summary": {"numCheckedOut": 3, "numOverdue": 1, "numHolds": 2,
	"numAvailableHolds": 1, "totalFines": "$4.50", "expires": "12/31/2026", "name": "Jordan Reader"}}`

// execute runs the CLI against a catalog that answers every json call with the menu data, so
// the saved session is always alive.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(menuData))
	}))
	t.Cleanup(server.Close)

	stateDir := t.TempDir()
	name := writeConfig(t, `{barcode: "21234000123456", pin: "1234", state_dir: "`+stateDir+`"}`)

	// a saved session, so no browser login is needed
	store := session.NewStore(session.DefaultPaths(stateDir))
	require.NoError(t, store.Save(map[string]string{"aspen_session": "live"}, transport.StorageState{}))

	previous := openClient
	openClient = func(cfg catalog.Config) (*catalog.Client, error) {
		cfg.BaseURL = server.URL
		cfg.Browser = transporttest.New()
		return catalog.New(cfg)
	}
	t.Cleanup(func() {
		openClient = previous
		configPath, relogin, headless, verbose, asTable, dumpDir = "", false, false, false, false, ""
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", name}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestStatusCommand(t *testing.T) {
	stdout, _, err := execute(t, "status")
	require.NoError(t, err)

	var summary library.AccountSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	want := library.AccountSummary{
		NumCheckedOut:     3,
		NumOverdue:        1,
		NumHolds:          2,
		NumAvailableHolds: 1,
		TotalFines:        4.5,
		Expires:           library.NewDate(2026, 12, 31),
		Name:              "Jordan Reader",
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatal(diff)
	}
}

func TestRenewRequiresTarget(t *testing.T) {
	_, _, err := execute(t, "renew")
	require.ErrorIs(t, err, errRenewTarget)
}

func TestSearchRejectsMissingQuery(t *testing.T) {
	_, _, err := execute(t, "search")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "arg"))
}
