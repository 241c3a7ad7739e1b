package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the curriculum (optionally one module)",
	RunE: func(cmd *cobra.Command, args []string) error {
		module, _ := cmd.Flags().GetString("module")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		catalog := curriculum.Default()
		if cfg.Catalog.Path != "" {
			if catalog, err = curriculum.Load(cfg.Catalog.Path); err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
		}

		var nodes []curriculum.Node
		if module != "" {
			nodes = catalog.ModuleNodes(module)
			if len(nodes) == 0 {
				return fmt.Errorf("no subtopics found for module %q", module)
			}
		} else {
			nodes = catalog.Nodes()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-24s  %-24s  %-28s  %s\n", "Module", "Subtopic", "Name", "Archetypes")
		fmt.Fprintln(out, strings.Repeat("─", 115))
		for _, n := range nodes {
			name := n.SubtopicName
			if len(name) > 28 {
				name = name[:25] + "..."
			}
			fmt.Fprintf(out, "%-24s  %-24s  %-28s  %s\n",
				n.ModuleID, n.SubtopicID, name, strings.Join(catalog.Archetypes(n.SubtopicID), ", "))
		}

		fmt.Fprintf(out, "\n%d subtopics\n", len(nodes))
		return nil
	},
}

func init() {
	catalogCmd.Flags().String("module", "", "Only list this module (e.g. string-manipulation)")
}
