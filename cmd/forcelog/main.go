package main

import (
	"os"

	"github.com/spf13/cobra"
)

var Version string

func main() {
	root := &cobra.Command{
		Use:          "forcelog",
		Short:        "Summarize and chart force rig measurement logs",
		Version:      Version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("group-by", "head,target", "Statistics grouping (head,target or table,head,target)")
	flags.Int("precision", 2, "Decimal digits of presented statistics")
	flags.String("unknown-table", "", "Label for unknown table codes; unknown codes fail when empty")
	flags.Int("max-rows", 0, "Maximum data rows per file; 0 for no limit")

	root.AddCommand(NewDumpCommand())
	root.AddCommand(NewETLCommand())
	root.AddCommand(NewETLSetupCommand())
	root.AddCommand(NewExportCommand())
	root.AddCommand(NewHeadsCommand())
	root.AddCommand(NewInspectCommand())
	root.AddCommand(NewLineCommand())
	root.AddCommand(NewPlotCommand())
	root.AddCommand(NewServeCommand())
	root.AddCommand(NewSummarizeCommand())

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
