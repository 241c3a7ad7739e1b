package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/abhisek/cadence/internal/runstate"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as a portable JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		return withApp(cmd, func(a *app) error {
			data, err := a.svc.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported run %s to %s\n", args[0], outPath)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import a run from an exported JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read import: %w", err)
		}

		return withApp(cmd, func(a *app) error {
			res, err := a.svc.Import(cmd.Context(), data)
			var verr *runstate.ValidationError
			if errors.As(err, &verr) {
				return fmt.Errorf("rejected document (%s): %w", verr.Reason, err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch res.Outcome {
			case runstate.ImportCreated:
				fmt.Fprintf(out, "Imported run %s (%s).\n", res.Run.ID, res.Run.Name)
			case runstate.ImportReplaced:
				fmt.Fprintf(out, "Replaced run %s with the newer imported copy.\n", res.Run.ID)
			case runstate.ImportKept:
				fmt.Fprintf(out, "Kept run %s; the stored copy is newer.\n", res.Run.ID)
			case runstate.ImportRenamed:
				fmt.Fprintf(out, "Run id already in use; imported as %s.\n", res.Run.ID)
			}
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Fold legacy per-field records into a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			st, err := a.runs.MigrateLegacy(cmd.Context())
			if err != nil {
				return err
			}
			if st == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated legacy data into run %s (%s).\n", st.ID, st.Name)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
}
