package ledger

import (
	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/model"
)

// figures are the money rules shared by the visit summary and the
// portfolio totals.
type figures struct {
	charged     model.Money
	paid        model.Money
	adjusted    model.Money
	outstanding model.Money
	rejected    int
	voids       int
	unbalanced  int
}

func (b *Builder) tally(charges []*graph.Charge, actions []*graph.Action, invoices []*graph.Invoice, remits []*graph.Remittance) figures {
	var f figures
	for _, c := range charges {
		f.charged += c.Charged()
		f.outstanding += c.Outstanding()
		if c.Voided {
			f.voids++
		}
		if !c.Balanced() {
			f.unbalanced++
		}
	}
	// Reversals undo a prior payment and are not counted as paid.
	for _, r := range remits {
		if !r.IsReversal() {
			f.paid += model.Sum(r.PaidAmount)
		}
	}
	for _, a := range actions {
		if a.Type == nil || a.Amount == nil {
			continue
		}
		if class, _ := b.policy.Classify(*a.Type); class == ClassAdjustment {
			f.adjusted += a.Amount.Abs()
		}
	}
	for _, inv := range invoices {
		if b.policy.IsRejected(inv.Status) {
			f.rejected++
		}
	}
	return f
}

func (b *Builder) summarize(c *collected, events int) Summary {
	f := b.tally(c.charges, c.actions, c.invoices, c.remits)
	return Summary{
		TotalCharged:       f.charged,
		TotalPaid:          f.paid,
		TotalAdjusted:      f.adjusted,
		Outstanding:        f.outstanding,
		HasRejectedInvoice: f.rejected > 0,
		HasVoid:            f.voids > 0,
		ChargeCount:        len(c.charges),
		InvoiceCount:       len(c.invoices),
		RemittanceCount:    len(c.remits),
		EventCount:         events,
		UnbalancedCharges:  f.unbalanced,
	}
}

// portfolio applies the summary rules to the whole record. The claim count
// is the number of invoices, since each invoice is one payer-facing claim.
func (b *Builder) portfolio(visits []VisitReport) Totals {
	bl := b.g.Billing
	f := b.tally(bl.Charges, bl.Actions, bl.Invoices, bl.Remittances)
	t := Totals{
		Billed:        f.charged,
		Paid:          f.paid,
		Adjusted:      f.adjusted,
		Outstanding:   f.outstanding,
		ClaimCount:    len(bl.Invoices),
		RejectedCount: f.rejected,
		Encounters:    len(visits),
	}
	for _, v := range visits {
		if v.Billing != nil {
			t.EncountersWithBilling++
		}
	}
	return t
}
