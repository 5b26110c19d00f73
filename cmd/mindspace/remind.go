package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/wellness"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// parseSchedule accepts standard 5-field cron expressions
func parseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid reminder schedule", goerr.V("schedule", expr))
	}
	// Next returns the zero time for expressions with no activation, such as Feb 30
	if sched.Next(time.Now()).IsZero() {
		return nil, goerr.New("reminder schedule never fires", goerr.V("schedule", expr))
	}
	return sched, nil
}

// remind prints a check-in nudge at every activation of sched until ctx is
// done. count > 0 stops after that many reminders.
func remind(ctx context.Context, w io.Writer, sched cron.Schedule, loc *time.Location, count int, now func() time.Time) error {
	for sent := 0; count <= 0 || sent < count; sent++ {
		current := now().In(loc)
		next := sched.Next(current)
		if next.IsZero() {
			return goerr.New("reminder schedule has no next activation")
		}
		fmt.Fprintf(w, "Next check-in at %s\n", next.Format("Mon Jan 2 15:04"))

		timer := time.NewTimer(next.Sub(current))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		fmt.Fprintln(w, "Time to check in: how are you feeling? Run 'mindspace journal' to write it down.")
		fmt.Fprintf(w, "Tip: %s\n", wellness.RandomTip(wellness.Tips, nil))
	}
	return nil
}

func remindCmd(flags *globalFlags) *cobra.Command {
	var (
		schedule string
		count    int
	)

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Print journaling reminders on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, false, func(ctx context.Context, a *app) error {
				if schedule == "" {
					schedule = a.cfg.RemindSchedule
				}
				sched, err := parseSchedule(schedule)
				if err != nil {
					return err
				}
				a.logger.Info("reminders scheduled", "cron", schedule, "timezone", a.cfg.Location.String())

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				return remind(ctx, cmd.OutOrStdout(), sched, a.cfg.Location, count, time.Now)
			})
		},
	}

	cmd.Flags().StringVarP(&schedule, "schedule", "s", "", "cron expression (default from config, 0 21 * * *)")
	cmd.Flags().IntVarP(&count, "count", "c", 0, "stop after this many reminders (0 runs forever)")
	return cmd
}
