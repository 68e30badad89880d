package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
)

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE...",
		Short: "Write per table statistics of the given rig logs to xlsx workbooks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  export,
	}

	cmd.Flags().String("out", ".", "Output directory")
	cmd.Flags().String("table", "", "Only export this table")

	return cmd
}

func export(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("out")
	table, _ := cmd.Flags().GetString("table")

	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}
		if table != "" && !ds.HasTable(table) {
			return fmt.Errorf("export %s: no table %q", arg, table)
		}

		statistics := forcelog.Aggregate(ds.Rows, forcelog.ByTableHeadTarget, forcelog.Filter{Table: table})

		workbook := filepath.Join(outDir, outputName(arg, ".xlsx"))
		output, err := os.Create(workbook)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}

		err = forcelog.WriteWorkbook(output, statistics, p.Precision)
		if cerr := output.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}

		fmt.Println(workbook)
	}

	return nil
}
