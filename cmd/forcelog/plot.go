package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/subtlepseudonym/forcelog"
	"github.com/subtlepseudonym/forcelog/plot"
)

func NewPlotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot FILE...",
		Short: "Render scatter and box charts for every table and head",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotFiles,
	}

	flags := cmd.Flags()
	flags.String("out", ".", "Output directory")
	flags.String("format", string(plot.FormatPNG), "Image format (png, svg)")
	flags.Int("width", plot.DefaultWidth, "Image width in pixels")
	flags.Int("height", plot.DefaultHeight, "Image height in pixels")
	flags.Int("workers", runtime.NumCPU(), "Concurrent renders")

	return cmd
}

type chartJob struct {
	path string
	fig  plot.Figure
}

func plotFiles(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	outDir, _ := flags.GetString("out")
	formatName, _ := flags.GetString("format")
	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	workers, _ := flags.GetInt("workers")

	format, err := plot.ParseFormat(formatName)
	if err != nil {
		return fmt.Errorf("format flag: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	jobs := make([]chartJob, 0, 16)
	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}
		jobs = append(jobs, chartJobs(ds, outDir, outputName(arg, ""), format)...)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := renderFile(job, format, width, height); err != nil {
				return err
			}
			logger.Debug("chart written", slog.String("path", job.path), slog.String("kind", job.fig.Kind.String()))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("charts written", slog.Int("count", len(jobs)), slog.String("dir", outDir))

	return nil
}

// chartJobs lists one scatter and one box chart per table and head of ds
func chartJobs(ds *forcelog.Dataset, outDir, base string, format plot.Format) []chartJob {
	jobs := make([]chartJob, 0, 8)
	for _, table := range ds.Tables() {
		for _, head := range ds.Heads(table) {
			prefix := fmt.Sprintf("%s_%s_head%d", base, strings.ToLower(table), head)
			jobs = append(jobs,
				chartJob{
					path: filepath.Join(outDir, prefix+"_scatter."+string(format)),
					fig:  plot.BuildScatter(ds.Rows, table, head),
				},
				chartJob{
					path: filepath.Join(outDir, prefix+"_box."+string(format)),
					fig:  plot.BuildBoxPlot(ds.Rows, table, head),
				},
			)
		}
	}

	return jobs
}

func renderFile(job chartJob, format plot.Format, width, height int) (ret error) {
	f, err := os.Create(job.path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && ret == nil {
			ret = fmt.Errorf("close %s: %w", job.path, err)
		}
	}()

	if err := plot.Render(f, job.fig, format, width, height); err != nil {
		return fmt.Errorf("render %s: %w", job.path, err)
	}

	return nil
}
