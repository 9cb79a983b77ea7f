package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/catalog"
)

func init() {
	searchCmd.Flags().String("index", catalog.DefaultSearchIndex, "search index (Keyword, Title, Author, Subject)")
	searchCmd.Flags().Int("limit", catalog.DefaultSearchLimit, "maximum results to return")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(locationsCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := cmd.Flags().GetString("index")
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")

		return run(func(ctx context.Context, client *catalog.Client) (any, error) {
			return client.Search(ctx, query, index, limit)
		})(cmd, args)
	},
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List the branches holds can be picked up at.",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, client *catalog.Client) (any, error) {
		locations, err := client.PickupLocations(ctx)
		if err != nil {
			return nil, err
		}
		return locationsOutput{Locations: locations}, nil
	}),
}
