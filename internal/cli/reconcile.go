package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-tick/remind"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-sync every active schedule",
	Long: `Recompute and re-arm the wake-up job of every active schedule.

Run it after restoring the job queue or after changing engine limits. Owner
timezones are looked up with reconcile.timezone_query.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if cfg.Reconcile.TimezoneQuery == "" {
		return errNoTimezoneQuery
	}

	ctx := cmd.Context()
	stop := serveMetrics(cfg.Metrics.Addr)
	defer stop()

	return withDriver(ctx, func(driver *remind.PqDriver, coordinator *remind.Coordinator) error {
		report, err := coordinator.Reconcile(ctx, driver, driver, remind.ReconcileOptions{
			Concurrency:   cfg.Reconcile.Concurrency,
			RatePerSecond: cfg.Reconcile.RatePerSecond,
		})
		if err != nil {
			return err
		}

		for id, err := range report.Failed {
			log.Warn().Err(err).Str("schedule_id", id).Msg("Schedule not reconciled")
		}

		return nil
	})
}
