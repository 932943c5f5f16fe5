// mkfixture shrinks a large export document to a small representative
// fixture: the first N encounters with billing, in date order, plus every
// billing record reachable from their charges.
// Usage: go run ./cmd/mkfixture --in export.json --out testdata/patient_export.json --encounters 3
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/gyeh/ehiledger/internal/emit"
	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/model"
)

func main() {
	in := flag.String("in", "export.json", "input export document")
	out := flag.String("out", "testdata/patient_export.json", "output fixture")
	visitMapPath := flag.String("visit-map", "", "visit number to CSN mapping")
	maxEnc := flag.Int("encounters", 3, "encounters with billing to keep")
	withoutBilling := flag.Int("plain", 1, "encounters without billing to keep")
	checkOnly := flag.Bool("check", false, "only print stats, don't write")
	flag.Parse()

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		fmt.Fprintf(os.Stderr, "decode input: %v\n", err)
		os.Exit(1)
	}
	f.Close()
	doc := model.Row(raw)

	var visitMap map[string]string
	if *visitMapPath != "" {
		vf, err := os.Open(*visitMapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open visit map: %v\n", err)
			os.Exit(1)
		}
		visitMap, err = graph.ReadVisitMap(vf)
		vf.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	g, err := graph.Hydrate(doc, visitMap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hydrate: %v\n", err)
		os.Exit(1)
	}

	encounters := append([]*graph.Encounter(nil), g.Encounters...)
	sort.SliceStable(encounters, func(i, j int) bool {
		a, b := encounters[i].Date, encounters[j].Date
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})

	// Pass 1: bucket encounters by whether they carry billing.
	var billed, plain []string
	for _, e := range encounters {
		if len(g.Index().ChargesForEncounter(e.ID)) > 0 {
			billed = append(billed, e.ID)
		} else {
			plain = append(plain, e.ID)
		}
	}
	fmt.Printf("Scanned %d encounters: %d with billing, %d without\n", len(encounters), len(billed), len(plain))

	if *checkOnly {
		fmt.Printf("Charges: %d, invoices: %d, remittances: %d, actions: %d\n",
			len(g.Billing.Charges), len(g.Billing.Invoices), len(g.Billing.Remittances), len(g.Billing.Actions))
		fmt.Printf("Missing collections: %v\n", g.Capabilities.Missing())
		return
	}

	// Pass 2: select and cut.
	selected := take(billed, *maxEnc)
	selected = append(selected, take(plain, *withoutBilling)...)
	sub := graph.Subset(doc, g, selected)

	outFile, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	if err := emit.WriteJSON(outFile, sub); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	if err := outFile.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close output: %v\n", err)
		os.Exit(1)
	}

	// Print summary
	sg, err := graph.Hydrate(sub, visitMap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "re-hydrate fixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d encounters to %s\n", len(sg.Encounters), *out)
	fmt.Println("Billing records:")
	counts := []struct {
		name string
		n    int
	}{
		{"charges", len(sg.Billing.Charges)},
		{"actions", len(sg.Billing.Actions)},
		{"invoices", len(sg.Billing.Invoices)},
		{"claims", len(sg.Billing.Claims)},
		{"remittances", len(sg.Billing.Remittances)},
		{"recons", len(sg.Billing.Reconciliations)},
		{"eob_lines", len(sg.Billing.EOBLines)},
		{"payments", len(sg.Billing.Payments)},
		{"collections", len(sg.Billing.CollectionEvents)},
	}
	for _, c := range counts {
		fmt.Printf("  %-12s %d\n", c.name, c.n)
	}
}

func take(ids []string, n int) []string {
	if n < len(ids) {
		return ids[:n]
	}
	return ids
}
