package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/runstate"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <run-id>",
	Short: "Show per-subtopic mastery for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			ctx := cmd.Context()
			st, err := a.runs.Load(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printStats(out, a, st)

			if a.events == nil {
				return nil
			}
			counts, err := a.events.TransitionCounts(ctx, st.ID)
			if err != nil {
				return fmt.Errorf("query transitions: %w", err)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Promotions: %d  Demotions: %d  Decays: %d  Remediations: %d\n",
				counts[string(difficulty.EventPromotion)], counts[string(difficulty.EventDemotion)],
				counts[string(difficulty.EventDecay)], counts[string(difficulty.EventRemediation)])
			return nil
		})
	},
}

func printStats(w io.Writer, a *app, st *runstate.RunState) {
	ids := make([]string, 0, len(st.PerSubtopicStats))
	for id := range st.PerSubtopicStats {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		fmt.Fprintf(w, "No attempts recorded for run %s yet.\n", st.ID)
		return
	}
	// Catalog order; subtopics no longer in the catalog go last.
	slices.SortFunc(ids, func(x, y string) int {
		px, py := a.catalog.Position(x), a.catalog.Position(y)
		if px < 0 {
			px = a.catalog.Len()
		}
		if py < 0 {
			py = a.catalog.Len()
		}
		if px != py {
			return px - py
		}
		return strings.Compare(x, y)
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBTOPIC\tLEVEL\tSOLVED\tATTEMPTS\tMASTERY\tMISSES\tLAST")
	for _, id := range ids {
		s := st.PerSubtopicStats.Get(id)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d%%\t%d\t%s\n",
			id, st.Level(id), s.Solved, s.Attempts, s.Percent(), s.ConsecutiveFailures, formatMillis(s.LastAttemptAt))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d questions, streak %d\n", st.CompletedQuestions, st.Streak)
}
