package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abhisek/cadence/internal/mastery"
	"github.com/abhisek/cadence/internal/scheduler"
	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next <run-id>",
	Short: "Show the next practice target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			t, err := a.svc.NextTarget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTarget(cmd.OutOrStdout(), t)
			return nil
		})
	},
}

func printTarget(w io.Writer, t scheduler.Target) {
	fmt.Fprintf(w, "Module:      %s (%s)\n", t.Node.ModuleName, t.Node.ModuleID)
	fmt.Fprintf(w, "Subtopic:    %s (%s)\n", t.Node.SubtopicName, t.Node.SubtopicID)
	fmt.Fprintf(w, "Difficulty:  %s\n", t.Difficulty)
	if t.Fallback {
		fmt.Fprintln(w, "Note:        queued subtopic is no longer in the catalog")
	}
	if len(t.Archetypes) > 0 {
		fmt.Fprintf(w, "Prefer:      %s\n", strings.Join(t.Archetypes, ", "))
	}
	if !t.Avoid.Empty() {
		fmt.Fprintf(w, "Avoid:       %s\n", strings.Join(t.Avoid.Archetypes, ", "))
		tags := make([]string, len(t.Avoid.Tags))
		for i, tag := range t.Avoid.Tags {
			tags[i] = string(tag)
		}
		fmt.Fprintf(w, "Avoid tags:  %s\n", strings.Join(tags, ", "))
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve <run-id>",
	Short: "Serve the next question, screened for variety",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			s, err := a.svc.Serve(cmd.Context(), args[0], scheduler.CatalogGenerator{Catalog: a.catalog})
			if err != nil {
				return err
			}
			printServed(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

func printServed(w io.Writer, s *scheduler.Served) {
	fmt.Fprintf(w, "%s\n", s.Question.Text)
	fmt.Fprintf(w, "  archetype %s, %s", s.Fingerprint.ArchetypeID, s.Target.Difficulty)
	if s.Attempts > 1 {
		fmt.Fprintf(w, ", %d candidates", s.Attempts)
	}
	if s.Verdict.Exhausted {
		fmt.Fprint(w, ", variety exhausted")
	}
	fmt.Fprintln(w)
}

var recordCmd = &cobra.Command{
	Use:   "record <run-id> <correct|incorrect|partial>",
	Short: "Record the outcome of an attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := mastery.ParseResult(strings.ToLower(args[1]))
		if err != nil {
			return err
		}
		elapsed, _ := cmd.Flags().GetDuration("elapsed")
		advance, _ := cmd.Flags().GetBool("advance")

		return withApp(cmd, func(a *app) error {
			ctx := cmd.Context()
			out, err := a.svc.RecordAttempt(ctx, args[0], result, elapsed)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			if !advance {
				return nil
			}
			if _, err := a.svc.Advance(ctx, args[0]); err != nil {
				return err
			}
			t, err := a.svc.NextTarget(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Next: %s [%s]\n", t.Node.SubtopicName, t.Difficulty)
			return nil
		})
	},
}

func printOutcome(w io.Writer, out *scheduler.Outcome) {
	stats := out.Run.PerSubtopicStats.Get(out.SubtopicID)
	fmt.Fprintf(w, "Recorded %s on %s: %d/%d solved (%d%%), streak %d\n",
		out.Result, out.SubtopicID, stats.Solved, stats.Attempts, stats.Percent(), out.Run.Streak)
	if t := out.Transition; t != nil {
		fmt.Fprintf(w, "Difficulty %s -> %s\n", t.From, t.To)
	}
	if out.Injected > 0 {
		fmt.Fprintf(w, "Queued %d extra practice entr%s\n", out.Injected, plural(out.Injected, "y", "ies"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

var advanceCmd = &cobra.Command{
	Use:   "advance <run-id>",
	Short: "Move to the next queued subtopic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			st, err := a.svc.Advance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cur, _ := st.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "Now at %d/%d: %s\n", st.CurrentIndex+1, len(st.Queue), cur.SubtopicName)
			return nil
		})
	},
}

var jumpCmd = &cobra.Command{
	Use:   "jump <run-id> <index>",
	Short: "Jump to a queue position (1-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[1], err)
		}
		return withApp(cmd, func(a *app) error {
			st, err := a.svc.JumpTo(cmd.Context(), args[0], pos-1)
			if err != nil {
				return err
			}
			cur, _ := st.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "Now at %d/%d: %s\n", st.CurrentIndex+1, len(st.Queue), cur.SubtopicName)
			return nil
		})
	},
}

func init() {
	recordCmd.Flags().Duration("elapsed", 0, "Time spent on the question (e.g. 45s)")
	recordCmd.Flags().Bool("advance", false, "Advance to the next subtopic after recording")
}
