package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vilapos/m/domain"
	"vilapos/m/internal/dashboard"
)

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		shop  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the KPI snapshot of a shop",
		Long: `Print the KPI snapshot of a shop.

With --watch the snapshot is recomputed every DASHBOARD_REFRESH until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *app) error {
				shopID := a.shopOrDefault(shop)
				refresher := dashboard.NewRefresher(a.dashboard)
				show := func(m domain.DashboardMetrics) error {
					if rootOpts.Format == "json" {
						return writeJSON(cmd.OutOrStdout(), m)
					}
					return writeDashboardText(cmd.OutOrStdout(), m)
				}

				m, _, err := refresher.Refresh(ctx, shopID)
				if err != nil {
					return err
				}
				if err := show(m); err != nil || !watch {
					return err
				}

				poller := dashboard.NewPoller(refresher, a.cfg.DashboardRefresh, a.cfg.Location(), a.log)
				if _, err := poller.Watch(shopID, func(m domain.DashboardMetrics) { _ = show(m) }); err != nil {
					return err
				}
				poller.Start()
				defer func() { <-poller.Stop().Done() }()

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				<-ctx.Done()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&shop, "shop", "", "shop id (defaults to DEFAULT_SHOP)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep refreshing until interrupted")
	return cmd
}

func writeDashboardText(w io.Writer, m domain.DashboardMetrics) error {
	ew := &errWriter{w: w}
	ew.printf("shop %s at %s\n", m.ShopID, m.GeneratedAt)
	summary := func(label string, s domain.SalesSummary) {
		ew.printf("  %-8s total %s  items %d  sales %d\n", label, s.Total.StringFixed(2), s.Items, s.Count)
	}
	summary("today", m.Daily)
	summary("7 days", m.Weekly)
	summary("month", m.Monthly)
	ew.printf("  average ticket %s\n", m.AverageTicket.StringFixed(2))
	ew.printf("  stock: %d products, %d items, value %s, %d low\n",
		m.Stock.TotalProducts, m.Stock.TotalStockItems, m.Stock.TotalStockValue.StringFixed(2), m.Stock.LowStockCount)
	for _, p := range m.Stock.LowStockProducts {
		ew.printf("    low: %s (%d of %d)\n", p.Name, p.Stock, p.MinQuantity)
	}
	for i, p := range m.TopProducts {
		ew.printf("  top %d: %s  %d sold  %s\n", i+1, p.Name, p.Quantity, p.Revenue.StringFixed(2))
	}
	return ew.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
