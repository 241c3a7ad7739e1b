package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "List recent difficulty transitions of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		return withApp(cmd, func(a *app) error {
			if a.events == nil {
				return errors.New("the transition log is only kept by the sqlite backend")
			}
			events, err := a.events.RecentTransitions(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No transitions recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-6s  %-19s  %-12s  %-28s  %-27s  %s\n",
				"Seq", "Timestamp", "Kind", "Subtopic", "Change", "Detail")
			fmt.Fprintln(out, strings.Repeat("─", 106))
			for _, e := range events {
				if kind != "" && e.Kind != kind {
					continue
				}
				change := "-"
				if e.From != "" || e.To != "" {
					change = e.From + " -> " + e.To
				}
				subtopic := e.SubtopicID
				if subtopic == "" {
					subtopic = "-"
				}
				fmt.Fprintf(out, "%-6d  %-19s  %-12s  %-28s  %-27s  %d\n",
					e.Sequence,
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Kind,
					subtopic,
					change,
					e.Detail,
				)
			}
			return nil
		})
	},
}

func init() {
	eventsCmd.Flags().Int("limit", 20, "Maximum number of events")
	eventsCmd.Flags().String("kind", "", "Only show one kind (promotion, demotion, decay, remediation)")
}
