package cli

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/go-tick/remind"
)

var (
	nextFile  string
	nextTZ    string
	nextNow   string
	nextCount int
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print upcoming occurrences of a schedule",
	Long: `Print the next occurrences of the schedule in a YAML file.

Each occurrence is computed strictly after the previous one, starting from
--now (default: the current time).

Example:
  remind next --file standup.yaml --tz America/New_York --count 3`,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().StringVarP(&nextFile, "file", "f", "", "schedule file (YAML)")
	nextCmd.Flags().StringVar(&nextTZ, "tz", "UTC", "IANA timezone of the owner")
	nextCmd.Flags().StringVar(&nextNow, "now", "", "reference instant in RFC3339 (default: now)")
	nextCmd.Flags().IntVarP(&nextCount, "count", "n", 1, "number of occurrences to print")
	_ = nextCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	schedules, err := readSchedules(nextFile)
	if err != nil {
		return err
	}

	loc, err := remind.LoadLocation(nextTZ)
	if err != nil {
		return err
	}

	now := time.Now()
	if nextNow != "" {
		if now, err = time.Parse(time.RFC3339, nextNow); err != nil {
			return errors.Wrap(err, "parsing --now")
		}
	}

	out := cmd.OutOrStdout()
	for _, sch := range schedules {
		occurrences, reason := upcoming(resolver(), now, sch, loc, nextCount)

		label := sch.ID
		if label == "" {
			label = sch.Message
		}
		fmt.Fprintf(out, "%s:\n", label)

		for _, at := range occurrences {
			fmt.Fprintf(out, "  %s\n", at.In(loc).Format(time.RFC3339))
		}
		if len(occurrences) < nextCount {
			fmt.Fprintf(out, "  (no further occurrences: %s)\n", reason)
		}
	}

	return nil
}

// upcoming feeds each result back in as now. The reason describes why the
// sequence stopped short, if it did.
func upcoming(r remind.Resolver, now time.Time, sch *remind.Schedule, loc *time.Location, count int) ([]time.Time, remind.Reason) {
	var occurrences []time.Time
	for len(occurrences) < count {
		res := r.Resolve(now, sch, loc)
		if !res.Found {
			return occurrences, res.Reason
		}

		occurrences = append(occurrences, res.At)
		now = res.At
	}

	return occurrences, remind.ReasonScheduled
}
