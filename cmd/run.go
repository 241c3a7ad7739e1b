package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/queue"
	"github.com/abhisek/cadence/internal/runstate"
	"github.com/abhisek/cadence/internal/scheduler"
	"github.com/abhisek/cadence/internal/store"
	"github.com/spf13/cobra"
)

// app holds the dependencies shared by the run commands.
type app struct {
	backend store.Backend
	events  *store.EventRepo // nil unless the backend is SQLite
	catalog *curriculum.Catalog
	runs    *runstate.Store
	svc     *scheduler.Service
	tuning  runstate.Config
}

// openApp opens the configured store and builds the scheduling service.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	catalog := curriculum.Default()
	if cfg.Catalog.Path != "" {
		catalog, err = curriculum.Load(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	dsn, err := cfg.Store.DSN()
	if err != nil {
		return nil, fmt.Errorf("resolve store location: %w", err)
	}
	backend, err := store.Open(cmd.Context(), cfg.Store.Backend, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{backend: backend, catalog: catalog, tuning: cfg.Tuning}
	var recorder difficulty.Recorder
	if sq, ok := backend.(*store.SQLite); ok {
		a.events = sq.Events()
		recorder = a.events
	}

	queues := queue.NewGenerator(catalog, queue.Config{FocusModule: cfg.Catalog.FocusModule}, nil, logger)
	a.runs = runstate.NewStore(backend, queues, runstate.Options{
		Recorder: recorder,
		Logger:   logger,
		Exporter: runstate.Generator{Name: "cadence", Version: version},
	})
	a.svc = scheduler.New(a.runs, queues, scheduler.Options{
		Recorder:  recorder,
		Diversity: cfg.Diversity.Engine(),
		Logger:    logger,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new practice run",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		aggressive, _ := cmd.Flags().GetBool("aggressive")
		remediation, _ := cmd.Flags().GetBool("remediation")

		return withApp(cmd, func(a *app) error {
			opts := runstate.CreateOptions{
				Name:                  name,
				AggressiveProgression: aggressive,
				RemediationMode:       remediation,
			}
			if a.tuning != runstate.DefaultConfig() {
				tuning := a.tuning
				opts.Config = &tuning
			}
			st, err := a.runs.Create(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created run %s (%s) with %d queued subtopics.\n",
				st.ID, st.Name, len(st.Queue))
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List practice runs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			runs, err := a.runs.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs yet. Start one with: cadence new")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tQUESTIONS\tSTREAK\tUPDATED")
			for _, st := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					st.ID, st.Name, st.Status, st.CompletedQuestions, st.Streak, formatMillis(st.LastUpdatedAt))
			}
			return tw.Flush()
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its upcoming queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			st, err := a.runs.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRun(cmd.OutOrStdout(), st)
			return nil
		})
	},
}

func printRun(w io.Writer, st *runstate.RunState) {
	tuning := st.Tuning()
	fmt.Fprintf(w, "ID:         %s\n", st.ID)
	fmt.Fprintf(w, "Name:       %s\n", st.Name)
	fmt.Fprintf(w, "Status:     %s\n", st.Status)
	fmt.Fprintf(w, "Created:    %s\n", formatMillis(st.CreatedAt))
	fmt.Fprintf(w, "Updated:    %s\n", formatMillis(st.LastUpdatedAt))
	fmt.Fprintf(w, "Questions:  %d\n", st.CompletedQuestions)
	fmt.Fprintf(w, "Streak:     %d\n", st.Streak)

	var modes []string
	if st.AggressiveProgression {
		modes = append(modes, "aggressive")
	}
	if st.RemediationMode {
		modes = append(modes, "remediation")
	}
	if len(modes) == 0 {
		modes = append(modes, "standard")
	}
	fmt.Fprintf(w, "Mode:       %s\n", strings.Join(modes, ", "))

	phase := "mini-curriculum"
	if st.MiniCurriculumComplete {
		phase = "weakness practice"
	}
	fmt.Fprintf(w, "Queue:      %d/%d (%s)\n", st.CurrentIndex+1, len(st.Queue), phase)

	if cur, ok := st.Current(); ok {
		fmt.Fprintf(w, "\nNow:        %s / %s [%s]\n", cur.ModuleName, cur.SubtopicName, st.Level(cur.SubtopicID))
	}
	for i, n := range st.Upcoming(tuning.PrefetchBufferSize) {
		fmt.Fprintf(w, "Next %d:     %s / %s [%s]\n", i+1, n.ModuleName, n.SubtopicName, st.Level(n.SubtopicID))
	}
}

var deleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its diversity memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.runs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s.\n", args[0])
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <run-id> <active|paused|completed>",
	Short: "Change a run's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := runstate.ParseStatus(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app) error {
			ctx := cmd.Context()
			st, err := a.runs.Load(ctx, args[0])
			if err != nil {
				return err
			}
			st.Status = status
			if err := a.runs.Save(ctx, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s is now %s.\n", st.ID, st.Status)
			return nil
		})
	},
}

func init() {
	newCmd.Flags().String("name", "", "Display name for the run")
	newCmd.Flags().Bool("aggressive", false, "Promote after a shorter correct streak")
	newCmd.Flags().Bool("remediation", false, "Re-queue a subtopic after it is demoted")
}
