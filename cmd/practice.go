package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/cadence/internal/mastery"
	"github.com/abhisek/cadence/internal/scheduler"
	"github.com/spf13/cobra"
)

var practiceCmd = &cobra.Command{
	Use:   "practice <run-id>",
	Short: "Work through questions interactively",
	Long: `Serve questions one after another and record how each went.

Answer each prompt with c (correct), i (incorrect), p (partial), s (skip to
the next subtopic without recording) or q (quit). Questions come from the
catalog's archetypes; a content generator can replace them.`,
	Args: cobra.ExactArgs(1),
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().Int("count", 5, "Number of questions to serve")
}

var practiceAnswers = map[string]mastery.Result{
	"c": mastery.ResultCorrect,
	"i": mastery.ResultIncorrect,
	"p": mastery.ResultPartial,
}

func runPractice(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	runID := args[0]

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	gen := scheduler.CatalogGenerator{Catalog: a.catalog}

	var answered, correct int
loop:
	for i := 1; i <= count; i++ {
		served, err := a.svc.Serve(ctx, runID, gen)
		if err != nil {
			return err
		}
		started := time.Now()

		fmt.Fprintf(out, "── Question %d/%d · %s ──\n", i, count, served.Target.Node.ModuleName)
		printServed(out, served)

		var result mastery.Result
		for {
			fmt.Fprint(out, "\n[c]orrect [i]ncorrect [p]artial [s]kip [q]uit: ")
			if !scanner.Scan() {
				fmt.Fprintln(out, "\n(input closed)")
				break loop
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if answer == "q" {
				break loop
			}
			if answer == "s" {
				break
			}
			if r, ok := practiceAnswers[answer]; ok {
				result = r
				break
			}
		}

		if result != "" {
			outcome, err := a.svc.RecordAttempt(ctx, runID, result, time.Since(started))
			if err != nil {
				return err
			}
			answered++
			if result == mastery.ResultCorrect {
				correct++
			}
			printOutcome(out, outcome)
		}
		if _, err := a.svc.Advance(ctx, runID); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "── Summary: %d/%d correct ──\n", correct, answered)
	return nil
}
