package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ehiledger/internal/logging"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reconcile billing per encounter and write the report",
	RunE:  runReport,
}

func init() {
	addInputFlags(reportCmd)
	f := reportCmd.Flags()
	f.StringVar(&cfg.OutPath, "out", "-", "Report JSON output path (- for stdout)")
	f.StringVar(&cfg.ParquetPath, "parquet", "", "Also write the timelines as Parquet, one row per event")
	f.StringVar(&cfg.CleanPath, "clean", "", "Also write the Clean Projection JSON")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Encounters reconciled concurrently")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	res := runPipeline(log)

	s := res.Summary
	fmt.Fprintf(os.Stderr, "Report complete: %d encounters (%d with billing), %d events, %d unbalanced charges (%.1fs)\n",
		s.Encounters, s.EncountersWithBilling, s.TimelineEvents, s.UnbalancedCharges, s.DurationTotal.Seconds())
	return nil
}
