package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
)

var defaultNum = 10

func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print normalized rows of the given rig logs as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE:  inspect,
	}

	cmd.Flags().IntP("n", "n", defaultNum, "Number of rows to output; 0 for all")
	cmd.Flags().String("table", "", "Only output rows of this table")
	cmd.Flags().Int("head", 0, "Only output rows of this head")
	return cmd
}

func inspect(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	n, err := flags.GetInt("n")
	if err != nil {
		return fmt.Errorf("get n flag value: %w", err)
	}
	table, _ := flags.GetString("table")
	head, _ := flags.GetInt("head")

	encoder := json.NewEncoder(os.Stdout)
	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}

		rows := ds.Select(forcelog.Filter{Table: table, Head: head})
		if n > 0 && n < len(rows) {
			rows = rows[:n]
		}

		for _, row := range rows {
			err = encoder.Encode(row)
			if err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
		}
	}

	return nil
}
