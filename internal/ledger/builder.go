package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/normalize"
	"github.com/gyeh/ehiledger/internal/projection"
)

// Builder reconciles the billing records of each visit in a graph. It only
// reads the graph, so one Builder may serve concurrent Visit calls.
type Builder struct {
	g      *graph.Graph
	policy Policy
	log    zerolog.Logger

	// Clock stamps Report.GeneratedAt. Defaults to time.Now.
	Clock func() time.Time
}

// NewBuilder returns a Builder over g.
func NewBuilder(g *graph.Graph, policy Policy, log zerolog.Logger) *Builder {
	return &Builder{g: g, policy: policy, log: log, Clock: time.Now}
}

// collected is the set of billing records transitively reachable from one
// visit's charges. Each slice is de-duplicated by identity and keeps
// discovery order.
type collected struct {
	charges     []*graph.Charge
	actions     []*graph.Action
	eobs        []*graph.EOBLine
	payments    []*graph.Payment
	invoices    []*graph.Invoice
	claims      []*graph.Claim
	recons      []*graph.Reconciliation
	remits      []*graph.Remittance
	collections []*graph.CollectionEvent
}

// seenSet de-duplicates records by id within one visit.
type seenSet map[string]bool

func (s seenSet) first(id string) bool {
	if s[id] {
		return false
	}
	s[id] = true
	return true
}

func (b *Builder) collect(enc *graph.Encounter) *collected {
	ix := b.g.Index()
	charges := ix.ChargesForEncounter(enc.ID)
	if len(charges) == 0 {
		return nil
	}

	c := &collected{}
	seenCharge, seenAction, seenEOB, seenPayment := seenSet{}, seenSet{}, seenSet{}, seenSet{}
	seenInvoice, seenClaim, seenRecon, seenRemit := seenSet{}, seenSet{}, seenSet{}, seenSet{}

	for _, ch := range charges {
		if !seenCharge.first(ch.ID) {
			continue
		}
		c.charges = append(c.charges, ch)
		for _, a := range ix.ActionsForCharge(ch.ID) {
			if seenAction.first(a.ID) {
				c.actions = append(c.actions, a)
			}
		}
		for _, l := range ix.EOBLinesForCharge(ch.ID) {
			if seenEOB.first(l.ID) {
				c.eobs = append(c.eobs, l)
			}
		}
		for _, p := range ix.PaymentsForCharge(ch.ID) {
			if seenPayment.first(p.ID) {
				c.payments = append(c.payments, p)
			}
		}
		for _, inv := range ch.Invoices(b.g) {
			if seenInvoice.first(inv.ID) {
				c.invoices = append(c.invoices, inv)
			}
		}
	}

	// Claims, reconciliations and remittances join through the invoice number.
	for _, inv := range c.invoices {
		if inv.Number == nil {
			continue
		}
		num := *inv.Number
		for _, cl := range ix.ClaimsForInvoice(num) {
			if seenClaim.first(cl.ID) {
				c.claims = append(c.claims, cl)
			}
		}
		for _, r := range ix.ReconciliationsForInvoice(num) {
			if seenRecon.first(r.ID) {
				c.recons = append(c.recons, r)
			}
		}
		for _, r := range ix.RemittancesForInvoice(num) {
			if seenRemit.first(r.ID) {
				c.remits = append(c.remits, r)
			}
		}
	}

	c.collections = ix.CollectionsForEncounter(enc.ID)
	return c
}

// Visit reconciles one encounter. Encounters with no charges get a nil
// Billing.
func (b *Builder) Visit(enc *graph.Encounter) VisitReport {
	report := VisitReport{Encounter: summarizeEncounter(enc)}
	c := b.collect(enc)
	if c == nil {
		return report
	}

	timeline := b.timeline(enc, c)
	report.Billing = &VisitBilling{
		Summary:     b.summarize(c, len(timeline)),
		Timeline:    timeline,
		Charges:     projectEach(c.charges, func(ch *graph.Charge) projection.Charge { return projection.ProjectCharge(b.g, ch) }),
		Invoices:    projectEach(c.invoices, projection.ProjectInvoice),
		Claims:      projectEach(c.claims, projection.ProjectClaim),
		Recons:      projectEach(c.recons, projection.ProjectReconciliation),
		Remits:      projectEach(c.remits, projection.ProjectRemittance),
		Actions:     projectEach(c.actions, projection.ProjectAction),
		EOBs:        projectEach(c.eobs, projection.ProjectEOBLine),
		Payments:    projectEach(c.payments, projection.ProjectPayment),
		Collections: projectEach(c.collections, projection.ProjectCollectionEvent),
	}
	return report
}

// Build reconciles every encounter and computes record-wide totals. With
// workers > 1 visits are reconciled concurrently; the result is identical
// to the sequential run.
func (b *Builder) Build(ctx context.Context, workers int) (*Report, error) {
	start := time.Now()
	encounters := chronological(b.g.Encounters)
	visits := make([]VisitReport, len(encounters))

	if workers <= 1 {
		for i, enc := range encounters {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("reconcile visits: %w", err)
			}
			visits[i] = b.Visit(enc)
		}
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(workers)
		for i, enc := range encounters {
			i, enc := i, enc
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				visits[i] = b.Visit(enc)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, fmt.Errorf("reconcile visits: %w", err)
		}
	}

	report := &Report{
		GeneratedAt: b.Clock().UTC().Format(projection.ProjectedAtLayout),
		Patient:     b.patientSummary(),
		Totals:      b.portfolio(visits),
		Visits:      visits,
	}

	b.log.Info().
		Int("encounters", report.Totals.Encounters).
		Int("with_billing", report.Totals.EncountersWithBilling).
		Int("workers", workers).
		Str("billed", report.Totals.Billed.String()).
		Str("outstanding", report.Totals.Outstanding.String()).
		Dur("duration", time.Since(start)).
		Msg("reconciliation complete")
	return report, nil
}

func (b *Builder) patientSummary() PatientSummary {
	p := b.g.Patient
	return PatientSummary{
		Name:      p.Name,
		MRN:       p.MRN,
		BirthDate: normalize.FormatDate(p.BirthDate),
		Coverage:  projectEach(b.g.Coverage, projection.ProjectCoverage),
	}
}

// chronological orders encounters by contact date, undated first, keeping
// source order for ties.
func chronological(in []*graph.Encounter) []*graph.Encounter {
	out := make([]*graph.Encounter, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	return out
}

func summarizeEncounter(e *graph.Encounter) EncounterSummary {
	return EncounterSummary{
		ID:         e.ID,
		Date:       normalize.FormatDate(e.Date),
		Type:       e.Type,
		Department: e.Department,
		Provider:   e.Provider,
	}
}

func projectEach[T, U any](in []*T, fn func(*T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
