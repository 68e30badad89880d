package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
)

func NewSummarizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize FILE...",
		Short: "Print grouped statistics of the given rig logs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  summarize,
	}

	cmd.Flags().String("table", "", "Only summarize this table")
	cmd.Flags().Int("head", 0, "Only summarize this head")
	cmd.Flags().Bool("json", false, "Print one JSON document per file")

	return cmd
}

func summarize(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	table, _ := flags.GetString("table")
	head, _ := flags.GetInt("head")
	asJSON, _ := flags.GetBool("json")
	filter := forcelog.Filter{Table: table, Head: head}

	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}

		views := p.Views(ds, filter)
		if asJSON {
			b, err := json.Marshal(struct {
				Dataset    string                    `json:"dataset"`
				GroupBy    string                    `json:"group_by"`
				Statistics []forcelog.StatisticsView `json:"statistics"`
			}{
				Dataset:    ds.Name,
				GroupBy:    p.GroupBy.String(),
				Statistics: views,
			})
			if err != nil {
				return fmt.Errorf("json marshal: %w", err)
			}
			fmt.Println(string(b))
			continue
		}

		fmt.Println(ds.Name)
		err = writeStatisticsTable(os.Stdout, p.Statistics(ds, filter), p.Precision)
		if err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}

	return nil
}

// writeStatisticsTable prints statistics as aligned columns. Out of tolerance
// extremes are marked with an asterisk.
func writeStatisticsTable(out io.Writer, statistics []forcelog.GroupStatistics, precision int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Table\tHead\tTarget\tCount\tMean\tMax\tMin\tRange\t3σ\tLower\tUpper\t")

	for _, s := range statistics {
		max := forcelog.FormatValue(s.Max, precision)
		if s.MaxOutOfTolerance() {
			max += "*"
		}
		min := forcelog.FormatValue(s.Min, precision)
		if s.MinOutOfTolerance() {
			min += "*"
		}
		lower, upper := forcelog.NotComputable, forcelog.NotComputable
		if s.Limits.Defined {
			lower = forcelog.FormatValue(s.Limits.Lower, precision)
			upper = forcelog.FormatValue(s.Limits.Upper, precision)
		}
		table := s.Table
		if table == "" {
			table = "-"
		}

		fmt.Fprintf(w, "%s\t%d\t%g\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			table,
			s.Head,
			s.Target,
			s.Count,
			forcelog.FormatValue(s.Mean, precision),
			max,
			min,
			forcelog.FormatValue(s.Range, precision),
			forcelog.FormatValue(s.ThreeSigma, precision),
			lower,
			upper,
		)
	}

	return w.Flush()
}
