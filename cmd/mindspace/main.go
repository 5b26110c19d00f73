package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/pbaille/mindspace/internal/api"
	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/report"
	"github.com/pbaille/mindspace/internal/store"
	"github.com/pbaille/mindspace/internal/wellness"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:          "mindspace",
		Short:        "Mood journal with automatic mood classification",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.mindspace/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory holding the mood history")
	rootCmd.PersistentFlags().StringVar(&flags.store, "store", "", "backing store: json or sqlite")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flags.tracing, "trace", false, "print OpenTelemetry spans to stderr")

	rootCmd.AddCommand(addCmd(&flags))
	rootCmd.AddCommand(journalCmd(&flags))
	rootCmd.AddCommand(listCmd(&flags))
	rootCmd.AddCommand(showCmd(&flags))
	rootCmd.AddCommand(chartCmd(&flags))
	rootCmd.AddCommand(moodsCmd(&flags))
	rootCmd.AddCommand(tipsCmd())
	rootCmd.AddCommand(breatheCmd())
	rootCmd.AddCommand(remindCmd(&flags))
	rootCmd.AddCommand(serveCmd(&flags))

	return rootCmd
}

// run builds the app, loads the history when needed and releases everything afterwards
func run(cmd *cobra.Command, flags *globalFlags, needHistory bool, fn func(ctx context.Context, a *app) error) error {
	a, ctx, err := newApp(cmd.Context(), *flags)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if needHistory {
		if err := a.load(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	return s
}

func addCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add [text]",
		Short: "Write a journal entry and record its mood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, a *app) error {
				s := newSpinner(" Classifying...")
				s.Start()
				rec, err := a.journal.Submit(ctx, strings.Join(args, " "))
				s.Stop()

				if rec != nil {
					printRecorded(cmd.OutOrStdout(), *rec)
				}
				if errors.Is(err, store.ErrStoreWrite) {
					return fmt.Errorf("entry classified but not saved: %w", err)
				}
				return err
			})
		},
	}
}

func printRecorded(w io.Writer, rec domain.MoodRecord) {
	fmt.Fprintf(w, "Mood: %s (%.2f)\n", rec.Mood, rec.Confidence)
	fmt.Fprintf(w, "Recorded entry %s\n", report.ShortID(rec.ID))
}

func journalCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "Write entries interactively, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, a *app) error {
				rl, err := readline.NewEx(&readline.Config{
					Prompt:          "How are you feeling? > ",
					InterruptPrompt: "^C",
					EOFPrompt:       "bye",
				})
				if err != nil {
					return err
				}
				defer rl.Close()

				out := cmd.OutOrStdout()
				for {
					line, err := rl.Readline()
					if errors.Is(err, readline.ErrInterrupt) {
						if line == "" {
							return nil
						}
						continue
					}
					if errors.Is(err, io.EOF) {
						return nil
					}
					if err != nil {
						return err
					}
					if strings.TrimSpace(line) == "" {
						continue
					}

					rec, err := a.journal.Submit(ctx, line)
					if rec != nil {
						printRecorded(out, *rec)
					}
					if err != nil {
						fmt.Fprintf(out, "warning: %v\n", err)
					}
				}
			})
		},
	}
}

func listCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, a *app) error {
				records := a.history.Records()
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No entries yet. Use 'mindspace add' to write one.")
					return nil
				}
				return report.RenderList(cmd.OutOrStdout(), report.Newest(records, limit), time.Now(), a.cfg.Location)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func showCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, a *app) error {
				rec, ok := a.history.Find(args[0])
				if !ok {
					return fmt.Errorf("entry not found: %s", args[0])
				}
				return report.RenderRecord(cmd.OutOrStdout(), rec, a.cfg.Location)
			})
		},
	}
}

func chartCmd(flags *globalFlags) *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Chart mood confidence per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, a *app) error {
				bars := report.Chart(a.history.Records(), a.cfg.Location)
				if len(bars) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to chart yet.")
					return nil
				}
				return report.RenderChart(cmd.OutOrStdout(), bars, width)
			})
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 30, "bar length at confidence 1")
	return cmd
}

func moodsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "moods",
		Short: "Show how often each mood was recorded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, true, func(ctx context.Context, a *app) error {
				return report.RenderDistribution(cmd.OutOrStdout(), report.Distribution(a.history.Records()))
			})
		},
	}
}

func tipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tips",
		Short: "Print a random wellness tip",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), wellness.RandomTip(wellness.Tips, nil))
			return nil
		},
	}
}

func breatheCmd() *cobra.Command {
	var (
		cycles int
		period time.Duration
	)

	cmd := &cobra.Command{
		Use:   "breathe",
		Short: "Follow a paced breathing exercise",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var s *spinner.Spinner
			done, err := wellness.Breathe(ctx, cycles, period, func(p wellness.Phase, cycle int) {
				if s != nil {
					s.Stop()
				}
				fmt.Fprintf(out, "%s (%d/%d)\n", p, cycle, cycles)
				s = newSpinner(" " + p.String())
				s.Start()
			})
			if s != nil {
				s.Stop()
			}

			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(out, "Stopped after %d cycles.\n", done)
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&cycles, "cycles", "c", 4, "number of breathing cycles")
	cmd.Flags().DurationVar(&period, "period", wellness.DefaultBreathPeriod, "length of one inhale or exhale")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, false, func(ctx context.Context, a *app) error {
				if err := a.load(ctx); err != nil {
					// keep serving; /health reports the history as uninitialized
					a.logger.Error("mood history unavailable", "error", err)
				}

				cancel := a.history.Subscribe(func(records []domain.MoodRecord) {
					a.logger.Debug("history changed", "entries", len(records))
				})
				defer cancel()

				if addr == "" {
					addr = a.cfg.Addr
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				server := api.New(a.journal, addr, api.WithModelStatus(a), api.WithLocation(a.cfg.Location))
				return server.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config, :8080)")
	return cmd
}
