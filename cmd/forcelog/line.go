package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
)

const (
	DefaultDevice = "unknown"
	DefaultRig    = "unknown"
)

func NewLineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "line FILE...",
		Short: "Convert rig logs to influx line protocol",
		Args:  cobra.MinimumNArgs(1),
		RunE:  line,
	}

	cmd.Flags().String("device", DefaultDevice, "Load cell device name")
	cmd.Flags().String("rig", DefaultRig, "Test rig name")
	cmd.Flags().String("out", ".", "Output directory")

	return cmd
}

// lineTags returns the caller tags applied to every line protocol point
func lineTags(cmd *cobra.Command) map[string]string {
	device, _ := cmd.Flags().GetString("device")
	rig, _ := cmd.Flags().GetString("rig")

	return map[string]string{
		"device": device,
		"rig":    rig,
	}
}

func line(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("out")
	tags := lineTags(cmd)

	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}

		lineFile := filepath.Join(outDir, outputName(arg, ".line"))
		output, err := os.Create(lineFile)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}

		err = forcelog.WriteLineProtocol(output, ds, tags)
		if cerr := output.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write line protocol: %w", err)
		}

		fmt.Println(lineFile)
	}

	return nil
}
