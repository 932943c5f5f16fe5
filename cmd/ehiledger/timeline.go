package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ehiledger/internal/exitcode"
	"github.com/gyeh/ehiledger/internal/logging"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/parquetread"
)

var timelineEncounter string

var timelineCmd = &cobra.Command{
	Use:   "timeline <file.parquet>",
	Short: "Print a timeline Parquet file written by report --parquet",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeline,
}

func init() {
	timelineCmd.Flags().StringVar(&timelineEncounter, "encounter", "", "Only print this encounter CSN")
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	reader, err := parquetread.Open(args[0])
	if err != nil {
		log.Error().Err(err).Msg("failed to open parquet file")
		os.Exit(exitcode.ValidationError)
	}
	defer reader.Close()

	if err := parquetread.ValidateSchema(reader.Schema()); err != nil {
		log.Error().Err(err).Msg("schema validation failed")
		reader.Close()
		os.Exit(exitcode.ValidationError)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		log.Error().Err(err).Msg("failed to read timeline rows")
		reader.Close()
		os.Exit(exitcode.ValidationError)
	}

	current := ""
	for _, r := range rows {
		if timelineEncounter != "" && r.EncounterID != timelineEncounter {
			continue
		}
		if r.EncounterID != current {
			current = r.EncounterID
			fmt.Printf("\n== Encounter %s (%s) ==\n", r.EncounterID, deref(r.EncounterDate, "undated"))
		}
		printRow(r)
	}
	return nil
}

func printRow(r model.TimelineRow) {
	amount := ""
	if r.AmountCents != nil {
		amount = fmt.Sprintf("%s %s", deref(r.AmountLabel, ""), model.Money(*r.AmountCents).USD())
	}
	dim := ""
	if r.Dim {
		dim = " (dim)"
	}
	fmt.Printf("  %-10s %-14s %-34s %-20s %s%s\n",
		deref(r.Date, "-"), r.Family, r.Label, amount, deref(r.Detail, ""), dim)
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
