package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ehiledger/internal/logging"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Write the schema-checked Clean Projection of an export",
	RunE:  runProject,
}

func init() {
	addInputFlags(projectCmd)
	projectCmd.Flags().StringVar(&cfg.CleanPath, "out", "-", "Clean Projection output path (- for stdout)")
	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	res := runPipeline(log)

	fmt.Fprintf(os.Stderr, "Projection complete: %d bytes, %d missing collections\n",
		len(res.CleanJSON), len(res.Summary.MissingCollections))
	return nil
}
