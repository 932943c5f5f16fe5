package ledger

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/model"
)

var fixedNow = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func loadGraph(t *testing.T) *graph.Graph {
	t.Helper()
	f, err := os.Open("../../testdata/patient_export.json")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	g, err := graph.HydrateJSON(f, map[string]string{"V1": "1001"})
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return g
}

func newTestBuilder(g *graph.Graph) *Builder {
	b := NewBuilder(g, DefaultPolicy(), zerolog.Nop())
	b.Clock = func() time.Time { return fixedNow }
	return b
}

func visitFor(t *testing.T, g *graph.Graph, csn string) VisitReport {
	t.Helper()
	enc, ok := g.Index().Encounter(csn)
	if !ok {
		t.Fatalf("encounter %s not in fixture", csn)
	}
	return newTestBuilder(g).Visit(enc)
}

func money(cents int64) model.Money { return model.Money(cents) }

func findEvents(events []Event, family string) []Event {
	var out []Event
	for _, e := range events {
		if e.Family == family {
			out = append(out, e)
		}
	}
	return out
}

func findSource(events []Event, family, sourceID string) []Event {
	var out []Event
	for _, e := range findEvents(events, family) {
		if e.SourceID != nil && *e.SourceID == sourceID {
			out = append(out, e)
		}
	}
	return out
}

// Scenario: charge 330.00 fully resolved by a payment and a contractual adjustment.
func TestVisit_ResolvedCharge(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "1001")
	require.NotNil(t, v.Billing)

	s := v.Billing.Summary
	assert.Equal(t, money(33000), s.TotalCharged)
	assert.Equal(t, money(22342), s.TotalPaid)
	assert.Equal(t, money(10658), s.TotalAdjusted)
	assert.Equal(t, money(0), s.Outstanding)
	assert.False(t, s.HasVoid)
	assert.False(t, s.HasRejectedInvoice)
	assert.Zero(t, s.UnbalancedCharges)

	require.Len(t, v.Billing.Charges, 1)
	assert.Equal(t, money(0), *v.Billing.Charges[0].OutstandingAmount)
	assert.Len(t, v.Billing.Invoices, 1)
	assert.Len(t, v.Billing.Claims, 1)
	assert.Len(t, v.Billing.Recons, 1)
	assert.Len(t, v.Billing.Remits, 2)
	assert.Len(t, v.Billing.Actions, 1)
	assert.Len(t, v.Billing.EOBs, 1)
	assert.Len(t, v.Billing.Payments, 1)
	assert.Len(t, v.Billing.Collections, 2)
	assert.Equal(t, len(v.Billing.Timeline), s.EventCount)

	actions := findEvents(v.Billing.Timeline, FamilyAction)
	require.Len(t, actions, 1)
	assert.Equal(t, money(-10658), *actions[0].Amount, "display amount is the negated ledger amount")
	assert.Equal(t, "Adjustment", *actions[0].AmountLabel)

	eobs := findEvents(v.Billing.Timeline, FamilyEOB)
	require.Len(t, eobs, 1)
	assert.Equal(t, money(22342), *eobs[0].Amount)
	assert.Equal(t, "Paid", *eobs[0].AmountLabel)
}

// Scenario: charge voided and replaced by an equal-amount charge.
func TestVisit_VoidAndRepost(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "1002")
	require.NotNil(t, v.Billing)

	assert.True(t, v.Billing.Summary.HasVoid)
	assert.Equal(t, money(15000), v.Billing.Summary.TotalCharged, "voided amount excluded")
	assert.Equal(t, money(15000), v.Billing.Summary.Outstanding)

	orig := findSource(v.Billing.Timeline, FamilyCharge, "9002")
	require.Len(t, orig, 1)
	assert.Equal(t, "Charge voided and reposted", orig[0].Label)
	assert.True(t, orig[0].Dim)
	assert.Contains(t, *orig[0].Detail, "replaced by charge 9003")

	repl := findSource(v.Billing.Timeline, FamilyCharge, "9003")
	require.Len(t, repl, 1)
	assert.Equal(t, "Replacement charge posted", repl[0].Label)
	assert.False(t, repl[0].Dim)
	assert.Contains(t, *repl[0].Detail, "replaces charge 9002")

	onVoid := findSource(v.Billing.Timeline, FamilyAction, "9002:1")
	require.Len(t, onVoid, 1)
	assert.Equal(t, "Resubmission (on voided charge)", onVoid[0].Label)
	assert.Nil(t, onVoid[0].Amount)
	assert.Nil(t, onVoid[0].AmountLabel, "zero-amount other action has no label")

	denial := findSource(v.Billing.Timeline, FamilyAction, "9003:1")
	require.Len(t, denial, 1)
	assert.Equal(t, "Denied", *denial[0].AmountLabel)

	transfer := findSource(v.Billing.Timeline, FamilyAction, "9003:2")
	require.Len(t, transfer, 1)
	assert.Equal(t, "Transferred", *transfer[0].AmountLabel)
	assert.Equal(t, money(-15000), *transfer[0].Amount)

	assert.True(t, v.Billing.Summary.HasRejectedInvoice, "INV-2 reached through chargeIds is rejected")
	require.Len(t, v.Billing.Collections, 1, "collection event keyed by CSN")
}

// Scenario: a remittance with a negative charged amount is a reversal.
func TestVisit_RemittanceReversal(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "1001")

	rev := findSource(v.Billing.Timeline, FamilyRemittance, "RM2")
	require.Len(t, rev, 2)
	assert.Equal(t, "Remittance reversal", rev[0].Label)
	assert.Nil(t, rev[0].Amount)
	assert.Equal(t, "Reversal of $106.58", *rev[0].Detail)
	assert.Equal(t, "Adjustment reversal", rev[1].Label)
	assert.Nil(t, rev[1].Amount)

	received := findSource(v.Billing.Timeline, FamilyRemittance, "RM1")
	require.Len(t, received, 2)
	assert.Equal(t, money(22342), *received[0].Amount)
	assert.Equal(t, "Paid", *received[0].AmountLabel)
	assert.Equal(t, money(-10658), *received[1].Amount)
}

func TestVisit_RemittanceWithoutChargedAmountCountsAsPaid(t *testing.T) {
	doc := model.Row{
		"encounters": []any{map[string]any{"PAT_ENC_CSN_ID": "2001", "CONTACT_DATE": "5/1/2023"}},
		"billing": map[string]any{
			"transactions": []any{
				map[string]any{"TX_ID": "7001", "AMOUNT": 80.00, "OUTSTANDING_AMT": 0, "SERVICE_DATE": "5/1/2023", "VISIT_NUMBER": "2001"},
			},
			"invoices": []any{
				map[string]any{"INVOICE_ID": "I9", "INV_NUM": "INV-9", "charges": []any{map[string]any{"TX_ID": "7001"}}},
			},
			"remittances": []any{
				map[string]any{"IMAGE_ID": "RM9", "INV_NUM": "INV-9", "CLAIM_PAID_AMT": 80.00, "PAYMENT_DATE": "5/20/2023"},
			},
		},
	}
	g, err := graph.Hydrate(doc, nil)
	require.NoError(t, err)

	v := visitFor(t, g, "2001")
	require.NotNil(t, v.Billing)
	received := findSource(v.Billing.Timeline, FamilyRemittance, "RM9")
	require.Len(t, received, 1)
	assert.Equal(t, "Remittance received", received[0].Label)
	assert.Equal(t, money(8000), *received[0].Amount)
	assert.Equal(t, money(8000), v.Billing.Summary.TotalPaid)

	report, err := newTestBuilder(g).Build(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, money(8000), report.Totals.Paid)
}

func TestVisit_IdenticalRowsStayDistinct(t *testing.T) {
	checkIn := func() map[string]any {
		return map[string]any{"PAT_ENC_CSN_ID": "3001", "WORKFLOW_TYPE_C_NAME": "Check-In", "EVENT_DATE": "6/1/2023", "AMOUNT_COLLECTED": 10.00}
	}
	charge := func() map[string]any {
		return map[string]any{"AMOUNT": 20.00, "OUTSTANDING_AMT": 20.00, "SERVICE_DATE": "6/1/2023", "VISIT_NUMBER": "3001"}
	}
	doc := model.Row{
		"encounters": []any{map[string]any{"PAT_ENC_CSN_ID": "3001", "CONTACT_DATE": "6/1/2023"}},
		"billing": map[string]any{
			"transactions":     []any{charge(), charge()},
			"collectionEvents": []any{checkIn(), checkIn()},
		},
	}
	g, err := graph.Hydrate(doc, nil)
	require.NoError(t, err)

	v := visitFor(t, g, "3001")
	require.NotNil(t, v.Billing)
	assert.Len(t, v.Billing.Charges, 2)
	assert.Equal(t, money(4000), v.Billing.Summary.TotalCharged)

	cols := findEvents(v.Billing.Timeline, FamilyCollection)
	require.Len(t, cols, 2)
	assert.Equal(t, "Check-In (1 of 2)", cols[0].Label)
	assert.Equal(t, "Check-In (2 of 2)", cols[1].Label)
	assert.NotEqual(t, *cols[0].SourceID, *cols[1].SourceID)

	ids := make(map[string]bool)
	for _, e := range v.Billing.Timeline {
		assert.False(t, ids[e.ID], "event id %s used twice", e.ID)
		ids[e.ID] = true
	}
}

// Scenario: a visit with no charges reports billing as null.
func TestVisit_NoCharges(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "1003")
	assert.Nil(t, v.Billing)
	assert.Equal(t, "1003", v.Encounter.ID)

	report, err := newTestBuilder(g).Build(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Totals.Encounters)
	assert.Equal(t, 3, report.Totals.EncountersWithBilling)
}

// Scenario: two status entries on one date keep their sub-day order.
func TestVisit_ReconciliationSubDayOrder(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "1001")

	recons := findEvents(v.Billing.Timeline, FamilyReconciliation)
	require.Len(t, recons, 2)
	assert.Equal(t, "Submitted", recons[0].Label)
	assert.Equal(t, 0.1, recons[0].OrderKey)
	assert.Equal(t, "Accepted by payer", recons[1].Label)
	assert.Equal(t, 0.9, recons[1].OrderKey)
	assert.Equal(t, *recons[0].Date, *recons[1].Date)
}

// Scenario: a charge whose visit number has no mapping is collected under
// the visit number itself.
func TestVisit_UnmappedVisitNumber(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "777")
	require.NotNil(t, v.Billing)
	require.Len(t, v.Billing.Charges, 1)
	assert.Equal(t, "9004", v.Billing.Charges[0].ID)
	assert.Equal(t, money(8000), v.Billing.Summary.Outstanding)
	assert.Empty(t, v.Billing.Invoices)
}

func TestVisit_CollectionOrdinals(t *testing.T) {
	g := loadGraph(t)
	v := visitFor(t, g, "1001")
	cols := findEvents(v.Billing.Timeline, FamilyCollection)
	require.Len(t, cols, 2)
	assert.Equal(t, "Check-In (1 of 2)", cols[0].Label)
	assert.Equal(t, "Check-In (2 of 2)", cols[1].Label)
	assert.Nil(t, cols[0].Amount)
	assert.Equal(t, money(2500), *cols[1].Amount)
}

func TestVisit_InvoiceEventsCarryNoAmount(t *testing.T) {
	g := loadGraph(t)
	for _, csn := range []string{"1001", "1002"} {
		v := visitFor(t, g, csn)
		for _, e := range findEvents(v.Billing.Timeline, FamilyInvoice) {
			if e.Amount != nil || e.AmountLabel != nil {
				t.Errorf("visit %s: invoice event %s carries an amount", csn, *e.SourceID)
			}
		}
	}
}

func TestReport_Properties(t *testing.T) {
	g := loadGraph(t)
	report, err := newTestBuilder(g).Build(context.Background(), 1)
	require.NoError(t, err)

	for _, v := range report.Visits {
		if v.Billing == nil {
			continue
		}
		t.Run(v.Encounter.ID, func(t *testing.T) {
			events := v.Billing.Timeline
			if !sort.SliceIsSorted(events, func(i, j int) bool { return eventLess(events[i], events[j]) }) {
				t.Error("timeline is not ordered by date then order key")
			}
			if n := len(findEvents(events, FamilyVisit)); n != 1 {
				t.Errorf("got %d visit events, want 1", n)
			}

			ids := make(map[string]bool)
			numbers := make(map[string]bool)
			for _, c := range v.Billing.Charges {
				ids[c.ID] = true
				if c.InvoiceNumber != nil {
					numbers[*c.InvoiceNumber] = true
				}
				if c.Voided && *c.OutstandingAmount != 0 {
					t.Errorf("voided charge %s outstanding %v", c.ID, *c.OutstandingAmount)
				}
			}
			for _, inv := range v.Billing.Invoices {
				byNumber := inv.Number != nil && numbers[*inv.Number]
				for _, id := range inv.ChargeIDs {
					if !ids[id] && !byNumber {
						t.Errorf("invoice %s member %s is outside the visit", inv.ID, id)
					}
				}
			}

			seen := make(map[string]bool)
			for _, e := range events {
				if seen[e.ID] {
					t.Errorf("duplicate event id %s", e.ID)
				}
				seen[e.ID] = true
			}
		})
	}
}

func TestReport_Totals(t *testing.T) {
	g := loadGraph(t)
	report, err := newTestBuilder(g).Build(context.Background(), 1)
	require.NoError(t, err)

	tot := report.Totals
	assert.Equal(t, money(56000), tot.Billed)
	assert.Equal(t, money(22342), tot.Paid)
	assert.Equal(t, money(11158), tot.Adjusted, "includes the adjustment on an unknown charge")
	assert.Equal(t, money(23000), tot.Outstanding)
	assert.Equal(t, 2, tot.ClaimCount)
	assert.Equal(t, 1, tot.RejectedCount)

	assert.Equal(t, "2024-05-01T00:00:00Z", report.GeneratedAt)
	assert.Equal(t, "DOE,JANE", *report.Patient.Name)
	assert.Equal(t, "1980-03-14", *report.Patient.BirthDate)
	require.Len(t, report.Patient.Coverage, 1)

	var order []string
	for _, v := range report.Visits {
		order = append(order, v.Encounter.ID)
	}
	assert.Equal(t, []string{"1001", "1002", "1003", "777"}, order)
}

func TestBuild_ParallelMatchesSequential(t *testing.T) {
	g := loadGraph(t)
	b := newTestBuilder(g)

	seq, err := b.Build(context.Background(), 1)
	require.NoError(t, err)
	par, err := b.Build(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, seq, par)
}

func TestBuild_Cancelled(t *testing.T) {
	g := loadGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		if _, err := newTestBuilder(g).Build(ctx, workers); err == nil {
			t.Errorf("workers=%d: expected cancellation error", workers)
		}
	}
}

func TestEventIDsDeterministic(t *testing.T) {
	g := loadGraph(t)
	a := visitFor(t, g, "1001")
	b := visitFor(t, g, "1001")
	for i := range a.Billing.Timeline {
		assert.Equal(t, a.Billing.Timeline[i].ID, b.Billing.Timeline[i].ID)
	}
}

func TestSortEvents_UndatedFirst(t *testing.T) {
	d1 := time.Date(2023, 1, 1, 15, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC)
	events := []Event{
		newEvent(FamilyCharge, "a", 0, &d1, "late"),
		newEvent(FamilyCharge, "b", 0, nil, "undated"),
		newEvent(FamilyCharge, "c", 0, &d2, "early clock, higher key"),
	}
	events[0].OrderKey = 0.2
	events[2].OrderKey = 0.5
	sortEvents(events)

	var labels []string
	for _, e := range events {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"undated", "late", "early clock, higher key"}, labels,
		"same calendar date orders by key, not clock time")
}
