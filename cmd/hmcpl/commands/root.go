package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/catalog"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/telemetry"
	libtelemetry "github.com/markuskreitzer/hmcpl-library-cli/lib/telemetry"
)

const exitInterrupted = 130

var (
	configPath string
	relogin    bool
	headless   bool
	verbose    bool
	asTable    bool
	dumpDir    string
)

var rootCmd = &cobra.Command{
	Use:           "hmcpl",
	Short:         "hmcpl is a CLI for the Huntsville-Madison County Public Library catalog.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default "+defaultConfigPath+")")
	flags.BoolVar(&relogin, "relogin", false, "force a new login, ignoring the saved session")
	flags.BoolVar(&headless, "headless", false, "replay the saved browser session in a headless browser")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	flags.BoolVar(&asTable, "table", false, "print tables instead of json")
	flags.StringVar(&dumpDir, "dump-dir", "", "write every catalog request and response to this directory")
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(ctx, err, os.Stderr)
}

func exitCode(ctx context.Context, err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if ctx.Err() != nil {
		return exitInterrupted
	}
	writeError(stderr, err)
	return 1
}

// openClient is replaced in tests.
var openClient = catalog.New

type action func(ctx context.Context, client *catalog.Client) (any, error)

// run wraps an action with everything a command needs: config, logging, telemetry and a
// logged in client that is closed afterwards.
func run(fn action) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		libtelemetry.InitSlog(cmd.ErrOrStderr(), verbose)

		config, err := loadConfig(configPath, os.LookupEnv)
		if err != nil {
			return err
		}
		err = config.validate()
		if err != nil {
			return err
		}

		tel, err := libtelemetry.Setup(ctx, "hmcpl", config.telemetry())
		if err != nil {
			slog.Warn("telemetry export disabled", "err", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := tel.Shutdown(ctx)
			if err != nil {
				slog.Debug("failed to flush telemetry", "err", err)
			}
		}()

		clientConfig := config.catalog(headless)
		clientConfig.Telemetry = telemetry.SlogAPI{}
		clientConfig.DumpDir = dumpDir
		client, err := openClient(clientConfig)
		if err != nil {
			return err
		}
		defer client.Close()
		if config.telemetry().Enabled() {
			// recorded before Close so the browser is still counted
			defer libtelemetry.RecordRunStats(context.Background())
		}

		err = client.Login(ctx, relogin)
		if err == nil {
			var out any
			out, err = fn(ctx, client)
			if err == nil {
				err = render(cmd.OutOrStdout(), out, asTable)
			}
		}
		for _, warning := range client.Warnings() {
			writeWarning(cmd.ErrOrStderr(), warning)
		}
		return err
	}
}
