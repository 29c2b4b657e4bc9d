package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/surface"
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List executables that own a visible window",
	Args:  cobra.NoArgs,
	RunE:  runPrograms,
}

func init() {
	rootCmd.AddCommand(programsCmd)
}

func runPrograms(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p := newPipeline(conf, surface.Native(), newLogger(conf))

	out := cmd.OutOrStdout()
	list := p.loc.Programs()
	for _, name := range list {
		fmt.Fprintln(out, name)
	}
	fmt.Fprintf(out, "found %d programs\n", len(list))
	return nil
}
