package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vilapos/m/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var shop string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace a shop's data with the demo data set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *app) error {
				shopID := a.shopOrDefault(shop)
				res, err := seed.Demo(ctx, a.products, a.sales, shopID, a.clock.Now())
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded shop %s: %d products, %d sales\n", shopID, res.Products, res.Sales)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop id (defaults to DEFAULT_SHOP)")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var shop, file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a product catalog CSV into a shop",
		Long: `Import products from a CSV file with the header
name,stock,price,cost_price,min_quantity

Rows that fail to parse are skipped and reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *app) error {
				shopID := a.shopOrDefault(shop)
				res, err := seed.LoadProducts(ctx, a.products, shopID, file)
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d products into %s (%d skipped)\n", res.Imported, shopID, res.Skipped)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop id (defaults to DEFAULT_SHOP)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog CSV file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
