package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/logging"
	"github.com/gyeh/ehiledger/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run hydration, validation and reconciliation stats (no writes)",
	RunE:  runPlan,
}

func init() {
	addInputFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	cfg.DryRun = true
	res := runPipeline(log)

	g := res.Graph
	s := res.Summary
	t := res.Report.Totals

	fmt.Println("=== ehiledger plan ===")
	fmt.Printf("File:        %s\n", s.InputPath)
	fmt.Printf("SHA-256:     %s\n", s.InputSHA256)
	fmt.Printf("Source:      %s\n", s.Source)
	fmt.Printf("Visit map:   %d entries\n", len(g.VisitMap()))
	fmt.Println()
	fmt.Println("Collections:")
	for _, c := range model.AllCollections {
		mark := "present"
		if !g.Capabilities.Has(c.Key) {
			mark = "missing"
		}
		table := c.Table
		if s.TableCoverage != nil {
			if s.TableCoverage[c.Key] {
				table += " (loaded)"
			} else {
				table += " (not in store)"
			}
		}
		fmt.Printf("  %-18s %-8s %s\n", c.Name, mark, table)
	}
	fmt.Println()
	fmt.Println("History:")
	for _, kind := range graph.HistoryKinds {
		fmt.Printf("  %-18s %d snapshots\n", kind, g.History.Kind(kind).Len())
	}
	fmt.Println()
	ledgerState := "present"
	if !s.HasBilling {
		ledgerState = "absent (no visit reports billing)"
	}
	fmt.Printf("Charge ledger: %s\n", ledgerState)
	fmt.Printf("Encounters:  %d (%d with billing)\n", t.Encounters, t.EncountersWithBilling)
	fmt.Printf("Charges:     %d (%d unbalanced)\n", s.Charges, s.UnbalancedCharges)
	fmt.Printf("Invoices:    %d (%d rejected)\n", t.ClaimCount, t.RejectedCount)
	fmt.Printf("Events:      %d\n", s.TimelineEvents)
	fmt.Printf("Billed:      %s\n", t.Billed.USD())
	fmt.Printf("Paid:        %s\n", t.Paid.USD())
	fmt.Printf("Adjusted:    %s\n", t.Adjusted.USD())
	fmt.Printf("Outstanding: %s\n", t.Outstanding.USD())
	if len(s.MissingCollections) > 0 {
		fmt.Printf("\nMissing:     %s\n", strings.Join(s.MissingCollections, ", "))
	}
	fmt.Println("Schema validation: OK")
	return nil
}
