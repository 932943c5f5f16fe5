package graph

import (
	"github.com/gyeh/ehiledger/internal/model"
)

// Subset returns a copy of doc, the document g was hydrated from, limited to
// the given encounters and the billing records reachable from their charges.
// Patient, history, allergies, problems, coverage and accounts are kept
// whole. Encounter-linked rows (medications, messages, immunizations) are
// kept when their encounter is kept or they name none.
func Subset(doc model.Row, g *Graph, encounterIDs []string) model.Row {
	r := g.reachable(encounterIDs)

	out := make(model.Row, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	put(out, doc, "encounters", keepAligned(doc.Rows("encounters"), g.Encounters, func(e *Encounter) bool { return r.encounters[e.ID] }))
	linked := func(id *string) bool { return id == nil || r.encounters[*id] }
	put(out, doc, "medications", keepAligned(doc.Rows("medications"), g.Medications, func(m *Medication) bool { return linked(m.EncounterID) }))
	put(out, doc, "immunizations", keepAligned(doc.Rows("immunizations"), g.Immunizations, func(i *Immunization) bool { return linked(i.EncounterID) }))
	put(out, doc, "messages", keepAligned(doc.Rows("messages"), g.Messages, func(m *Message) bool { return linked(m.EncounterID) }))

	b, ok := doc.Object(model.KeyBilling)
	if !ok {
		return out
	}
	bill := make(model.Row, len(b))
	for k, v := range b {
		bill[k] = v
	}
	gb := g.Billing
	put(bill, b, "transactions", keepAligned(b.Rows("transactions"), gb.Charges, func(c *Charge) bool { return r.charges[c.ID] }))
	put(bill, b, "invoices", keepAligned(b.Rows("invoices"), gb.Invoices, func(i *Invoice) bool { return r.invoices[i.ID] }))
	put(bill, b, "claims", keepAligned(b.Rows("claims"), gb.Claims, func(c *Claim) bool { return r.numbers.has(c.InvoiceNumber) }))
	put(bill, b, "reconciliations", keepAligned(b.Rows("reconciliations"), gb.Reconciliations, func(x *Reconciliation) bool { return r.numbers.has(x.InvoiceNumber) }))
	put(bill, b, "remittances", keepAligned(b.Rows("remittances"), gb.Remittances, func(x *Remittance) bool { return r.numbers.has(x.InvoiceNumber) }))
	put(bill, b, "eobLines", keepAligned(b.Rows("eobLines"), gb.EOBLines, func(l *EOBLine) bool { return r.charges.has(l.ChargeID) }))
	put(bill, b, "payments", keepAligned(b.Rows("payments"), gb.Payments, func(p *Payment) bool { return r.charges.has(p.ChargeID) }))
	put(bill, b, "collectionEvents", keepAligned(b.Rows("collectionEvents"), gb.CollectionEvents, func(ev *CollectionEvent) bool {
		csn, ok := collectionEncounter(g, ev)
		return ok && r.encounters[csn]
	}))
	put(bill, b, "visits", keepAligned(b.Rows("visits"), gb.Visits, func(v *BillingVisit) bool {
		return r.visits[v.ID] || r.encounters.has(v.EncounterID)
	}))

	// Top-level actions are not aligned with the graph's list, which also
	// holds actions nested under charges.
	var actions []any
	for _, row := range b.Rows("actions") {
		if a := buildAction(model.NewReader(row), nil); r.charges.has(a.ChargeID) {
			actions = append(actions, map[string]any(row))
		}
	}
	put(bill, b, "actions", actions)

	out[model.KeyBilling] = map[string]any(bill)
	return out
}

type idSet map[string]bool

func (s idSet) has(id *string) bool { return id != nil && s[*id] }

type reach struct {
	encounters, charges, invoices, numbers, visits idSet
}

func (g *Graph) reachable(encounterIDs []string) reach {
	r := reach{encounters: idSet{}, charges: idSet{}, invoices: idSet{}, numbers: idSet{}, visits: idSet{}}
	ix := g.Index()
	for _, id := range encounterIDs {
		r.encounters[id] = true
	}
	addCharge := func(c *Charge) {
		r.charges[c.ID] = true
		if c.VisitNumber != nil {
			r.visits[*c.VisitNumber] = true
		}
		for _, inv := range c.Invoices(g) {
			r.invoices[inv.ID] = true
			if inv.Number != nil {
				r.numbers[*inv.Number] = true
			}
		}
	}
	for _, id := range encounterIDs {
		for _, c := range ix.ChargesForEncounter(id) {
			addCharge(c)
			if o := c.Original(g); o != nil {
				addCharge(o)
			}
			if rep := c.Replacement(g); rep != nil {
				addCharge(rep)
			}
		}
	}
	return r
}

// keepAligned filters rows by the entity hydrated from each. Rows and
// entities correspond one to one; on a length mismatch the collection was
// not an array and nothing is kept.
func keepAligned[T any](rows []model.Row, entities []*T, keep func(*T) bool) []any {
	out := []any{}
	if len(rows) != len(entities) {
		return out
	}
	for i, row := range rows {
		if keep(entities[i]) {
			out = append(out, map[string]any(row))
		}
	}
	return out
}

// put sets key only when the source document has it, so missing
// collections stay missing.
func put(dst, src model.Row, key string, rows []any) {
	if !src.Has(key) {
		return
	}
	if rows == nil {
		rows = []any{}
	}
	dst[key] = rows
}
