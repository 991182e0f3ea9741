package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vilapos/m/internal/migrations"
)

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	DryRun bool                     `json:"dry_run"`
	Reset  []string                 `json:"reset,omitempty"`
	State  string                   `json:"state"`
	Tables []migrations.TableReport `json:"tables"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dryRun bool
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Create missing tables and convert legacy tables to the current layout.

With --dry-run the tables are only classified and nothing is changed.
With --reset the products and sales tables are dropped and recreated empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun && reset {
				return fmt.Errorf("--dry-run and --reset cannot be combined")
			}
			return withApp(cmd, rootOpts, !dryRun && !reset, func(ctx context.Context, a *app) error {
				var dropped []string
				if reset {
					dropped = []string{migrations.TableProducts, migrations.TableSales}
					if err := a.schema.Reset(ctx, dropped...); err != nil {
						return fmt.Errorf("reset tables: %w", err)
					}
				}
				reports, err := a.schema.Inspect(ctx)
				if err != nil {
					return err
				}
				res := MigrateResult{DryRun: dryRun, Reset: dropped, State: a.schema.State().String(), Tables: reports}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				return writeMigrateText(cmd.OutOrStdout(), res)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report table shapes without migrating")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate the products and sales tables")
	return cmd
}

func writeMigrateText(w io.Writer, res MigrateResult) error {
	if _, err := fmt.Fprintf(w, "schema: %s\n", res.State); err != nil {
		return err
	}
	if len(res.Reset) > 0 {
		if _, err := fmt.Fprintf(w, "reset: %s\n", strings.Join(res.Reset, ", ")); err != nil {
			return err
		}
	}
	for _, t := range res.Tables {
		line := fmt.Sprintf("  %-10s %s", t.Table, t.Shape)
		if len(t.Missing) > 0 {
			line += " (missing " + strings.Join(t.Missing, ", ") + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
