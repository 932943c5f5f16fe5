package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

const voidedSuffix = " (on voided charge)"

// timeline builds one event per source record of the visit and sorts them.
func (b *Builder) timeline(enc *graph.Encounter, c *collected) []Event {
	events := []Event{b.visitEvent(enc)}
	events = append(events, collectionEvents(c.collections)...)
	for _, ch := range c.charges {
		events = append(events, b.chargeEvent(ch))
	}
	for _, inv := range c.invoices {
		events = append(events, invoiceEvent(inv))
	}
	for _, cl := range c.claims {
		events = append(events, claimEvent(cl))
	}
	for _, r := range c.recons {
		events = append(events, reconciliationEvents(r)...)
	}
	for _, r := range c.remits {
		events = append(events, b.remittanceEvents(r)...)
	}
	for _, a := range c.actions {
		events = append(events, b.actionEvent(a))
	}
	for _, l := range c.eobs {
		events = append(events, eobEvent(l))
	}
	for _, p := range c.payments {
		events = append(events, paymentEvent(p))
	}
	sortEvents(events)
	return events
}

func (b *Builder) visitEvent(enc *graph.Encounter) Event {
	ev := newEvent(FamilyVisit, enc.ID, 0, enc.Date, "Clinical visit")
	return ev.withDetail(join(" · ", enc.Type, enc.Department, enc.Provider))
}

// collectionEvents groups events by workflow type, ignoring case and spacing;
// repeats of a type are numbered "(i of n)" in source order.
func collectionEvents(in []*graph.CollectionEvent) []Event {
	totals := make(map[string]int)
	for _, ce := range in {
		totals[normalize.GroupKey(ce.WorkflowType, "collection")]++
	}
	seen := make(map[string]int)
	out := make([]Event, 0, len(in))
	for _, ce := range in {
		key := normalize.GroupKey(ce.WorkflowType, "collection")
		kind := workflow(ce)
		seen[key]++
		label := kind
		if n := totals[key]; n > 1 {
			label = fmt.Sprintf("%s (%d of %d)", kind, seen[key], n)
		}
		ev := newEvent(FamilyCollection, ce.ID, 0, ce.Date, label)
		var detail []string
		if ce.AmountDue != nil {
			detail = append(detail, "Due "+ce.AmountDue.USD())
		}
		if ce.AmountCollected != nil {
			detail = append(detail, "collected "+ce.AmountCollected.USD())
		}
		ev = ev.withDetail(strings.Join(detail, ", "))
		if ce.AmountCollected != nil && *ce.AmountCollected != 0 {
			ev = ev.withAmount(ce.AmountCollected, "Collected")
		}
		out = append(out, ev)
	}
	return out
}

func workflow(ce *graph.CollectionEvent) string {
	if ce.WorkflowType != nil {
		return *ce.WorkflowType
	}
	return "Collection"
}

func (b *Builder) chargeEvent(ch *graph.Charge) Event {
	replacement := ch.Replacement(b.g)
	procedure := join(" ", ch.ProcedureCode, ch.ProcedureName)

	var ev Event
	switch {
	case ch.Voided && (replacement != nil || ch.RepostTxID != nil):
		ev = newEvent(FamilyCharge, ch.ID, 0, firstTime(ch.VoidDate, ch.PostDate, ch.ServiceDate), "Charge voided and reposted")
		replID := ""
		if replacement != nil {
			replID = replacement.ID
		} else {
			replID = *ch.RepostTxID
		}
		ev = ev.withDetail(join("; ", &procedure, strPtr("replaced by charge "+replID)))
	case ch.Voided:
		ev = newEvent(FamilyCharge, ch.ID, 0, firstTime(ch.VoidDate, ch.PostDate, ch.ServiceDate), "Charge voided")
		ev = ev.withDetail(procedure)
	case ch.OriginalTxID != nil:
		ev = newEvent(FamilyCharge, ch.ID, 0, firstTime(ch.PostDate, ch.ServiceDate), "Replacement charge posted")
		ev = ev.withDetail(join("; ", &procedure, strPtr("replaces charge "+*ch.OriginalTxID)))
	default:
		ev = newEvent(FamilyCharge, ch.ID, 0, firstTime(ch.PostDate, ch.ServiceDate), "Charge posted")
		ev = ev.withDetail(procedure)
	}
	ev.Dim = ch.Voided
	return ev.withAmount(ch.Amount, "Charged")
}

// invoiceEvent never carries an amount: filing a claim moves no money.
func invoiceEvent(inv *graph.Invoice) Event {
	label := "Invoice filed"
	if inv.Status != nil {
		label = "Invoice " + strings.ToLower(*inv.Status)
	}
	ev := newEvent(FamilyInvoice, inv.ID, 0, firstTime(inv.Date, inv.ServiceFrom), label)
	return ev.withDetail(join(" to ", inv.Number, inv.Payer))
}

func claimEvent(cl *graph.Claim) Event {
	ev := newEvent(FamilyClaim, cl.ID, 0, cl.FiledDate, "Claim filed")
	return ev.withDetail(join(" · ", cl.InvoiceNumber, cl.Status, cl.Payer))
}

func reconciliationEvents(r *graph.Reconciliation) []Event {
	out := make([]Event, 0, len(r.StatusHistory))
	for i, s := range r.StatusHistory {
		label := "Claim status update"
		if s.Status != nil {
			label = *s.Status
		}
		ev := newEvent(FamilyReconciliation, r.ID, i, s.Date, label)
		ev.OrderKey = s.OrderKey
		out = append(out, ev.withDetail(join(" · ", r.InvoiceNumber, s.Detail)))
	}
	return out
}

// remittanceEvents emits one event for the remittance and one per
// adjustment line. A negative charged amount marks a reversal, which is
// shown without an amount.
func (b *Builder) remittanceEvents(r *graph.Remittance) []Event {
	out := make([]Event, 0, 1+len(r.Adjustments))
	reversal := r.IsReversal()

	if reversal {
		ev := newEvent(FamilyRemittance, r.ID, 0, r.PaymentDate, "Remittance reversal")
		out = append(out, ev.withDetail("Reversal of "+r.ChargedAmount.Abs().USD()))
	} else {
		ev := newEvent(FamilyRemittance, r.ID, 0, r.PaymentDate, "Remittance received")
		detail := ""
		if r.ChargedAmount != nil {
			detail = "Billed " + r.ChargedAmount.USD()
		}
		if r.Payer != nil {
			detail = join(" by ", &detail, r.Payer)
		}
		out = append(out, ev.withDetail(detail).withAmount(r.PaidAmount, "Paid"))
	}

	for i, adj := range r.Adjustments {
		code := join("-", adj.GroupCode, adj.ReasonCode)
		if reversal && adj.Amount != nil && *adj.Amount < 0 {
			ev := newEvent(FamilyRemittance, r.ID, i+1, r.PaymentDate, "Adjustment reversal")
			out = append(out, ev.withDetail(join(" ", strPtr("Reversal of"), nonEmpty(code), strPtr("adjustment of "+adj.Amount.Abs().USD()))))
			continue
		}
		ev := newEvent(FamilyRemittance, r.ID, i+1, r.PaymentDate, "Payer adjustment")
		ev = ev.withDetail(code)
		if adj.Amount != nil {
			display := model.Money(b.policy.sign(0)) * *adj.Amount
			ev = ev.withAmount(&display, "Adjustment")
		}
		out = append(out, ev)
	}
	return out
}

// actionEvent shows the policy-signed action amount: the ledger records
// balance removed, the timeline shows the signed change.
func (b *Builder) actionEvent(a *graph.Action) Event {
	actionType := ""
	if a.Type != nil {
		actionType = *a.Type
	}
	class, sign := b.policy.Classify(actionType)

	label := actionType
	if label == "" {
		label = "Transaction action"
	}
	charge := b.actionCharge(a)
	onVoid := charge != nil && charge.Voided
	if onVoid {
		label += voidedSuffix
	}

	ev := newEvent(FamilyAction, a.ID, 0, a.Date, label)
	ev = ev.withDetail(join(" · ", a.ReasonCode, outstandingChange(a)))
	ev.Dim = onVoid

	nonZero := a.Amount != nil && *a.Amount != 0
	if nonZero {
		display := model.Money(sign) * *a.Amount
		ev.Amount = &display
	}
	ev.AmountLabel = amountLabel(class, actionType, nonZero)
	return ev
}

func (b *Builder) actionCharge(a *graph.Action) *graph.Charge {
	if a.ChargeID == nil {
		return nil
	}
	c, _ := b.g.Index().Charge(*a.ChargeID)
	return c
}

func outstandingChange(a *graph.Action) *string {
	if a.OutstandingBefore == nil || a.OutstandingAfter == nil {
		return nil
	}
	s := fmt.Sprintf("balance %s → %s", a.OutstandingBefore.USD(), a.OutstandingAfter.USD())
	return &s
}

func eobEvent(l *graph.EOBLine) Event {
	label := "EOB line"
	if l.ProcedureCode != nil {
		label += " " + *l.ProcedureCode
	}
	ev := newEvent(FamilyEOB, l.ID, 0, l.Date, label)
	var detail []string
	if l.Billed != nil {
		detail = append(detail, "billed "+l.Billed.USD())
	}
	if l.Allowed != nil {
		detail = append(detail, "allowed "+l.Allowed.USD())
	}
	if patient := model.Sum(l.Deductible, l.Coinsurance, l.Copay); patient != 0 {
		detail = append(detail, "patient share "+patient.USD())
	}
	return ev.withDetail(strings.Join(detail, ", ")).withAmount(l.Paid, "Paid")
}

func paymentEvent(p *graph.Payment) Event {
	ev := newEvent(FamilyPayment, p.ID, 0, p.PostDate, "Payment posted")
	ev = ev.withDetail(join(" · ", p.Source, p.Payer))
	return ev.withAmount(p.Amount, "Payment")
}

// join concatenates the non-empty values with sep.
func join(sep string, vals ...*string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != nil && *v != "" {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, sep)
}

// firstTime returns the first non-nil time.
func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
