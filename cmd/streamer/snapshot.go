package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/surface"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [app]",
	Short: "Capture one frame of an app or the desktop to a JPEG file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "output", "o", "snapshot.jpg", "output file")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target := conf.Stream.Target
	if len(args) == 1 {
		target = args[0]
	}
	p := newPipeline(conf, surface.Native(), newLogger(conf))

	data, frame, err := p.pub.Snapshot(target)
	if err != nil {
		return err
	}
	if err := os.WriteFile(snapshotOut, data, 0o644); err != nil {
		return err
	}
	note := ""
	if frame.Placeholder {
		note = " (placeholder, target not captured)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %d bytes%s\n", snapshotOut, frame.Width(), frame.Height(), len(data), note)
	return nil
}
