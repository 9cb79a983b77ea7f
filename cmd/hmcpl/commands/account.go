package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/catalog"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/chrono"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
)

// clock is replaced in tests.
var clock = func() (chrono.API, error) {
	return chrono.NewStandardImpl()
}

func init() {
	rootCmd.AddCommand(statusCmd)

	checkoutsCmd.Flags().Int("due-soon", 0, "only show items due within N days")
	checkoutsCmd.Flags().Bool("overdue", false, "only show overdue items")
	rootCmd.AddCommand(checkoutsCmd)

	holdsCmd.Flags().Bool("ready", false, "only show holds ready for pickup")
	holdsCmd.Flags().Bool("pending", false, "only show pending holds")
	rootCmd.AddCommand(holdsCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the account summary.",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, client *catalog.Client) (any, error) {
		return client.AccountSummary(ctx)
	}),
}

type checkoutFilter struct {
	dueSoon *int
	overdue bool
}

func (f checkoutFilter) apply(checkouts []library.Checkout, today library.Date) []library.Checkout {
	if f.dueSoon != nil {
		checkouts = library.DueWithin(checkouts, today, *f.dueSoon)
	}
	if f.overdue {
		checkouts = library.Overdue(checkouts, today)
	}
	return checkouts
}

var checkoutsCmd = &cobra.Command{
	Use:   "checkouts",
	Short: "List checked out items.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := checkoutFilter{}
		if cmd.Flags().Changed("due-soon") {
			days, err := cmd.Flags().GetInt("due-soon")
			if err != nil {
				return err
			}
			filter.dueSoon = &days
		}
		overdue, err := cmd.Flags().GetBool("overdue")
		if err != nil {
			return err
		}
		filter.overdue = overdue

		return run(func(ctx context.Context, client *catalog.Client) (any, error) {
			checkouts, err := client.Checkouts(ctx)
			if err != nil {
				return nil, err
			}
			if filter.dueSoon == nil && !filter.overdue {
				return checkouts, nil
			}
			c, err := clock()
			if err != nil {
				return nil, err
			}
			return filter.apply(checkouts, chrono.Today(c)), nil
		})(cmd, args)
	},
}

type holdFilter struct {
	ready   bool
	pending bool
}

func (f holdFilter) apply(holds []library.Hold) []library.Hold {
	if f.ready {
		holds = library.HoldsWithStatus(holds, library.HoldAvailable)
	}
	if f.pending {
		holds = library.HoldsWithStatus(holds, library.HoldPending)
	}
	return holds
}

var holdsCmd = &cobra.Command{
	Use:   "holds",
	Short: "List holds.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ready, err := cmd.Flags().GetBool("ready")
		if err != nil {
			return err
		}
		pending, err := cmd.Flags().GetBool("pending")
		if err != nil {
			return err
		}
		filter := holdFilter{ready: ready, pending: pending}

		return run(func(ctx context.Context, client *catalog.Client) (any, error) {
			holds, err := client.Holds(ctx)
			if err != nil {
				return nil, err
			}
			return filter.apply(holds), nil
		})(cmd, args)
	},
}
