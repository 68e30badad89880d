package main

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
)

func NewDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE...",
		Short: "Dump file header and table inventory",
		Args:  cobra.MinimumNArgs(1),
		RunE:  dump,
	}
}

type tableInventory struct {
	Table string `json:"table"`
	Heads []int  `json:"heads"`
	Rows  int    `json:"rows"`
}

func dump(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	for _, arg := range args {
		raw, err := os.ReadFile(arg)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}

		text, err := forcelog.Decode(raw)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}

		header := struct {
			Name    string   `json:"name"`
			Bytes   int      `json:"bytes"`
			Runes   int      `json:"runes"`
			Columns []string `json:"columns"`
		}{
			Name:    arg,
			Bytes:   len(raw),
			Runes:   utf8.RuneCountInString(text),
			Columns: forcelog.Header(text),
		}

		b, err := json.Marshal(header)
		if err != nil {
			return fmt.Errorf("marshal header: %w", err)
		}
		fmt.Println(string(b))

		ds, err := load(p, arg)
		if err != nil {
			return err
		}

		for _, table := range ds.Tables() {
			inventory := tableInventory{
				Table: table,
				Heads: ds.Heads(table),
				Rows:  len(ds.Select(forcelog.Filter{Table: table})),
			}
			b, err = json.Marshal(inventory)
			if err != nil {
				return fmt.Errorf("marshal inventory: %w", err)
			}
			fmt.Println(string(b))
		}
	}

	return nil
}
