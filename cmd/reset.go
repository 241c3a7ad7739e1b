package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <run-id>",
	Short: "Clear recorded mastery stats",
	Long: `Clear the attempt counters of a run, for one subtopic or all of them.
The queue, streak and difficulty levels are left as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subtopic, _ := cmd.Flags().GetString("subtopic")

		return withApp(cmd, func(a *app) error {
			st, err := a.runs.ResetStats(cmd.Context(), args[0], subtopic)
			if err != nil {
				return err
			}
			if subtopic == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared all stats of run %s.\n", st.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared stats of %s in run %s.\n", subtopic, st.ID)
			}
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().String("subtopic", "", "Only clear this subtopic")
}
