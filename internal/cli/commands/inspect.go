package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fieldlens/fieldlens/internal/cli/config"
	"github.com/fieldlens/fieldlens/internal/plan"
	"github.com/fieldlens/fieldlens/internal/schema"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the resource schema and its load plans",
		Long: `Print every declared resource with its fields, relations, and the full
eager-load plan the planner computes for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, configDir)
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", "", "directory containing fieldlens.yaml")
	return cmd
}

func runInspect(cmd *cobra.Command, configDir string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return fmt.Errorf("invalid resource schema: %w", err)
	}
	if registry.Count() == 0 {
		return fmt.Errorf("no resources declared in fieldlens.yaml")
	}

	intro := schema.NewIntrospector(registry)
	planner := plan.NewPlanner(intro, nil)

	nameColor := color.New(color.FgCyan, color.Bold)
	labelColor := color.New(color.FgYellow)

	names := registry.List()
	sort.Strings(names)

	for _, name := range names {
		node, _ := registry.Get(name)

		nameColor.Fprintf(cmd.OutOrStdout(), "%s", node.Name)
		fmt.Fprintf(cmd.OutOrStdout(), " (table %s)\n", node.TableName)

		fields := node.FieldNames()
		sort.Strings(fields)
		for _, fieldName := range fields {
			field := node.Fields[fieldName]
			switch {
			case field.IsRelation():
				fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s (%s)\n",
					fieldName, field.Relation.Target, field.Relation.Kind)
			case field.WriteOnly:
				fmt.Fprintf(cmd.OutOrStdout(), "  %s (write-only)\n", fieldName)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fieldName)
			}
		}

		p, err := planner.Full(node)
		if err != nil {
			return err
		}
		labelColor.Fprint(cmd.OutOrStdout(), "  select:   ")
		fmt.Fprintln(cmd.OutOrStdout(), formatPaths(p.SelectStrings()))
		labelColor.Fprint(cmd.OutOrStdout(), "  prefetch: ")
		fmt.Fprintln(cmd.OutOrStdout(), formatPaths(p.PrefetchStrings()))
		fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func formatPaths(paths []string) string {
	if len(paths) == 0 {
		return "(none)"
	}
	return strings.Join(paths, ", ")
}
