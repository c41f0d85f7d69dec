package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-tick/remind"
	"github.com/go-tick/remind/internal/config"
)

var (
	cfgFile string
	verbose bool

	cfg = config.Default()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "remind",
	Short: "Resolve and schedule civil-time reminders",
	Long: `remind computes when reminders should fire in their owner's timezone and
keeps exactly one pending wake-up job per active schedule.

Preview the next occurrences of a schedule file:
  remind next --file standup.yaml --tz Europe/Berlin --count 5

Run reminders from a file in-process:
  remind worker --file schedules.yaml --tz Europe/Berlin`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
		if err != nil {
			return err
		}
		cfg = loaded

		setupLogging(cmd.ErrOrStderr(), cfg.Log)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// The context is canceled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./remind.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// setupLogging configures zerolog from the log section and the verbose flag.
func setupLogging(out io.Writer, logCfg config.LogConfig) {
	level, err := zerolog.ParseLevel(logCfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if out == nil {
		out = os.Stderr
	}
	if logCfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func resolver() remind.Resolver {
	return remind.Resolver{
		MaxScanDays:           cfg.Engine.MaxScanDays,
		ConvergenceIterations: cfg.Engine.ConvergenceIterations,
	}
}
