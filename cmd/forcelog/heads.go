package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func NewHeadsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "heads FILE...",
		Short: "Display the tables and heads measured in the given rig logs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  heads,
	}
}

func heads(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}

		for _, table := range ds.Tables() {
			labels := make([]string, 0, 8)
			for _, head := range ds.Heads(table) {
				labels = append(labels, strconv.Itoa(head))
			}
			fmt.Printf("%s\t%s\t%s\n", ds.Name, table, strings.Join(labels, ","))
		}
	}

	return nil
}
