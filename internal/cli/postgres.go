package cli

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-tick/remind"
	"github.com/go-tick/remind/internal/config"
)

var syncTZ string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schedules table",
	Long: `Apply the embedded schema to the database in database_url.

The graphile-worker schema is expected to be installed already; remind only
calls its add_job and remove_job functions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd.Context(), func(driver *remind.PqDriver, _ *remind.Coordinator) error {
			if err := driver.Migrate(cmd.Context()); err != nil {
				return err
			}

			log.Info().Msg("Schema applied")
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <id>",
	Short: "Recompute and re-arm the wake-up job of a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd.Context(), func(_ *remind.PqDriver, coordinator *remind.Coordinator) error {
			return coordinator.Sync(cmd.Context(), args[0], syncTZ)
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a schedule and drop its pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd.Context(), func(_ *remind.PqDriver, coordinator *remind.Coordinator) error {
			return coordinator.Cancel(cmd.Context(), args[0])
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a schedule and its pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd.Context(), func(_ *remind.PqDriver, coordinator *remind.Coordinator) error {
			return coordinator.Delete(cmd.Context(), args[0])
		})
	},
}

var fireCmd = &cobra.Command{
	Use:   "fire [payload]",
	Short: "Deliver a wake-up job and re-arm its schedule",
	Long: `Handle one job body produced by remind and re-arm the schedule.

The payload is the job's JSON body. It is read from stdin when the argument
is omitted or is "-", so a graphile-worker task can pipe jobs straight in.
Delivery is a log line per reminder.

Example:
  echo '{"scheduleId":"s1","timezone":"Europe/Berlin","runAt":"2024-06-03T07:00:00Z"}' | remind fire`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		return withDriver(cmd.Context(), func(_ *remind.PqDriver, coordinator *remind.Coordinator) error {
			return coordinator.HandleJob(cmd.Context(), raw)
		}, remind.WithNotifier(remind.NotifierFunc(logReminder)))
	},
}

func readPayload(in io.Reader, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return []byte(args[0]), nil
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, "reading payload from stdin")
	}

	return raw, nil
}

func init() {
	syncCmd.Flags().StringVar(&syncTZ, "tz", "", "IANA timezone of the schedule owner")
	_ = syncCmd.MarkFlagRequired("tz")

	rootCmd.AddCommand(migrateCmd, syncCmd, cancelCmd, deleteCmd, fireCmd)
}

// withDriver connects to Postgres and builds a coordinator over it.
func withDriver(ctx context.Context, fn func(*remind.PqDriver, *remind.Coordinator) error, options ...remind.Option[remind.Config]) error {
	if err := config.RequireDatabase(cfg); err != nil {
		return err
	}

	driver, err := remind.NewPqDriver(ctx, pqConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	options = append([]remind.Option[remind.Config]{
		remind.WithResolver(resolver()),
		remind.WithLogger(log.Logger),
		remind.WithErrorListeners(logErrors),
	}, options...)
	coordinator := remind.NewCoordinator(driver, driver, options...)

	return fn(driver, coordinator)
}

func pqConfig(cfg *config.Config) *remind.PqConfig {
	return remind.DefaultPqConfig(
		remind.WithConn(cfg.DatabaseURL),
		remind.WithTaskIdentifier(cfg.Queue.TaskIdentifier),
		remind.WithQueueName(cfg.Queue.QueueName),
		remind.WithMaxAttempts(cfg.Queue.MaxAttempts),
		remind.WithTimezoneQuery(cfg.Reconcile.TimezoneQuery),
		remind.WithErrorObservers(logErrors),
	)
}

var logErrors = remind.ErrorListenerFunc(func(err error) {
	log.Error().Err(err).Msg("Background operation failed")
})

var errNoTimezoneQuery = errors.New("reconcile.timezone_query is not configured")
