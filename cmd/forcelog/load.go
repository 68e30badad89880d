package main

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
	"github.com/subtlepseudonym/forcelog/config"
)

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	flags := cmd.Flags()
	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")

	return config.NewLogger(level, format)
}

func newPipeline(cmd *cobra.Command) (*forcelog.Pipeline, error) {
	flags := cmd.Flags()
	groupBy, _ := flags.GetString("group-by")
	precision, _ := flags.GetInt("precision")
	unknownTable, _ := flags.GetString("unknown-table")
	maxRows, _ := flags.GetInt("max-rows")

	by, err := forcelog.ParseGroupBy(groupBy)
	if err != nil {
		return nil, fmt.Errorf("group-by flag: %w", err)
	}
	if precision < 0 {
		return nil, fmt.Errorf("precision flag: must not be negative")
	}

	p := forcelog.DefaultPipeline()
	p.GroupBy = by
	p.Precision = precision
	p.Read.UnknownTable = unknownTable
	p.Read.MaxRows = maxRows

	return p, nil
}

// load reads and normalizes the rig log at filename
func load(p *forcelog.Pipeline, filename string) (*forcelog.Dataset, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	ds, err := p.Run(path.Base(filename), raw)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

// outputName replaces the extension of filename's base name with ext
func outputName(filename, ext string) string {
	base := path.Base(filename)
	return strings.TrimSuffix(base, path.Ext(base)) + ext
}
