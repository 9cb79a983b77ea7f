package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/catalog"
)

var errRenewTarget = errors.New("must specify --all or an item id")

func init() {
	holdCmd.Flags().String("pickup", "", "pickup location name, the catalog's default when empty")
	rootCmd.AddCommand(holdCmd)

	renewCmd.Flags().Bool("all", false, "renew every eligible item")
	rootCmd.AddCommand(renewCmd)
}

var holdCmd = &cobra.Command{
	Use:   "hold <record id>",
	Short: "Place a hold on a record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pickup, err := cmd.Flags().GetString("pickup")
		if err != nil {
			return err
		}
		return run(func(ctx context.Context, client *catalog.Client) (any, error) {
			return client.PlaceHold(ctx, args[0], pickup)
		})(cmd, args)
	},
}

var renewCmd = &cobra.Command{
	Use:   "renew [item id]",
	Short: "Renew one checked out item, or all of them with --all.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		if all {
			return run(func(ctx context.Context, client *catalog.Client) (any, error) {
				return client.RenewAll(ctx)
			})(cmd, args)
		}
		if len(args) == 0 {
			return errRenewTarget
		}
		return run(func(ctx context.Context, client *catalog.Client) (any, error) {
			return client.RenewItem(ctx, args[0])
		})(cmd, args)
	},
}
