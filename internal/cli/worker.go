package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-tick/remind"
	"github.com/go-tick/remind/internal/cronqueue"
	"github.com/go-tick/remind/internal/memstore"
)

var (
	workerFile string
	workerTZ   string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Fire reminders from a schedule file in-process",
	Long: `Load schedules from a YAML file and fire them in this process.

Schedules and pending jobs live in memory only; nothing survives a restart.
Delivery is a log line per reminder.

Example:
  remind worker --file schedules.yaml --tz Europe/Berlin`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().StringVarP(&workerFile, "file", "f", "", "schedule file (YAML)")
	workerCmd.Flags().StringVar(&workerTZ, "tz", "UTC", "IANA timezone used for every owner")
	_ = workerCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	schedules, err := readSchedules(workerFile)
	if err != nil {
		return err
	}

	if _, err := remind.LoadLocation(workerTZ); err != nil {
		return err
	}

	stop := serveMetrics(cfg.Metrics.Addr)
	defer stop()

	w := newWorker(workerTZ)
	w.queue.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.queue.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Jobs still running at shutdown")
		}
	}()

	for _, sch := range schedules {
		created, err := w.coordinator.Create(ctx, sch, workerTZ)
		if err != nil {
			log.Error().Err(err).Str("schedule_id", sch.ID).Msg("Failed to add schedule")
			continue
		}

		if runAt, ok := w.queue.Pending(remind.JobKey(created.ID)); ok {
			log.Info().
				Str("schedule_id", created.ID).
				Time("next_run_at", runAt).
				Msg("Schedule loaded")
		}
	}

	log.Info().Int("pending", w.queue.Len()).Msg("Worker started")
	<-ctx.Done()
	log.Info().Msg("Shutting down")

	return nil
}

type worker struct {
	store       *memstore.Store
	queue       *cronqueue.Queue
	coordinator *remind.Coordinator
}

func newWorker(timezone string, options ...remind.Option[remind.Config]) *worker {
	w := &worker{store: memstore.New(timezone)}

	queueOptions := []cronqueue.Option{cronqueue.WithLogger(log.Logger)}
	if cfg.Queue.MaxAttempts > 0 {
		queueOptions = append(queueOptions, cronqueue.WithMaxAttempts(cfg.Queue.MaxAttempts))
	}

	w.queue = cronqueue.New(func(ctx context.Context, payload remind.JobPayload) error {
		return w.coordinator.Fire(ctx, payload)
	}, queueOptions...)

	options = append([]remind.Option[remind.Config]{
		remind.WithResolver(resolver()),
		remind.WithLogger(log.Logger),
		remind.WithNotifier(remind.NotifierFunc(logReminder)),
		remind.WithErrorListeners(logErrors),
	}, options...)
	w.coordinator = remind.NewCoordinator(w.store, w.queue, options...)

	return w
}

func logReminder(_ context.Context, sch *remind.Schedule) error {
	event := log.Info().Str("schedule_id", sch.ID).Str("owner_id", sch.OwnerID)
	if sch.Emoji != "" {
		event = event.Str("emoji", sch.Emoji)
	}
	event.Msg(sch.Message)

	return nil
}
