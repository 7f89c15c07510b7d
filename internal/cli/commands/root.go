package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fieldlens",
		Short: "Projection-aware read API server",
		Long: color.CyanString(`fieldlens - dynamic field selection and eager-load planning

fieldlens serves read endpoints over a declared resource schema. Callers
narrow responses with fields/omit query parameters, and fieldlens narrows
the relation load plan to match, so the database only does the work the
response actually needs.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewInspectCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Print("fieldlens version: ")
			cmd.Println(Version)
			titleColor.Print("Git commit: ")
			cmd.Println(GitCommit)
			titleColor.Print("Build date: ")
			cmd.Println(BuildDate)
			titleColor.Print("Go version: ")
			cmd.Println(runtime.Version())
		},
	}
}
