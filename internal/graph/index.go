package graph

// Index holds the lookup maps for every cross-referenced entity type. It is
// built once by Hydrate and never modified afterwards. Rows whose foreign key
// is missing are not present in the keyed maps.
type Index struct {
	encounters map[string]*Encounter
	orders     map[string]*Order
	messages   map[string]*Message
	charges    map[string]*Charge

	chargesByEncounter     map[string][]*Charge
	replacementsByOriginal map[string]*Charge
	actionsByCharge        map[string][]*Action
	eobByCharge            map[string][]*EOBLine
	paymentsByCharge       map[string][]*Payment
	invoicesByCharge       map[string][]*Invoice
	invoicesByNumber       map[string][]*Invoice
	claimsByInvoice        map[string][]*Claim
	reconsByInvoice        map[string][]*Reconciliation
	remitsByInvoice        map[string][]*Remittance
	collectionsByEncounter map[string][]*CollectionEvent
}

func buildIndex(g *Graph) *Index {
	ix := &Index{
		encounters:             make(map[string]*Encounter, len(g.Encounters)),
		orders:                 make(map[string]*Order),
		messages:               make(map[string]*Message, len(g.Messages)),
		charges:                make(map[string]*Charge, len(g.Billing.Charges)),
		chargesByEncounter:     make(map[string][]*Charge),
		replacementsByOriginal: make(map[string]*Charge),
		actionsByCharge:        make(map[string][]*Action),
		eobByCharge:            make(map[string][]*EOBLine),
		paymentsByCharge:       make(map[string][]*Payment),
		invoicesByCharge:       make(map[string][]*Invoice),
		invoicesByNumber:       make(map[string][]*Invoice),
		claimsByInvoice:        make(map[string][]*Claim),
		reconsByInvoice:        make(map[string][]*Reconciliation),
		remitsByInvoice:        make(map[string][]*Remittance),
		collectionsByEncounter: make(map[string][]*CollectionEvent),
	}

	for _, e := range g.Encounters {
		if _, dup := ix.encounters[e.ID]; !dup {
			ix.encounters[e.ID] = e
		}
		for _, o := range e.Orders {
			if _, dup := ix.orders[o.ID]; !dup {
				ix.orders[o.ID] = o
			}
		}
	}
	for _, m := range g.Messages {
		if _, dup := ix.messages[m.ID]; !dup {
			ix.messages[m.ID] = m
		}
	}

	b := g.Billing
	for _, c := range b.Charges {
		if _, dup := ix.charges[c.ID]; !dup {
			ix.charges[c.ID] = c
		}
		if c.VisitNumber != nil {
			enc := g.ResolveVisit(*c.VisitNumber)
			ix.chargesByEncounter[enc] = append(ix.chargesByEncounter[enc], c)
		}
		if c.OriginalTxID != nil {
			if _, dup := ix.replacementsByOriginal[*c.OriginalTxID]; !dup {
				ix.replacementsByOriginal[*c.OriginalTxID] = c
			}
		}
	}
	for _, a := range b.Actions {
		if a.ChargeID != nil {
			ix.actionsByCharge[*a.ChargeID] = append(ix.actionsByCharge[*a.ChargeID], a)
		}
	}
	for _, l := range b.EOBLines {
		if l.ChargeID != nil {
			ix.eobByCharge[*l.ChargeID] = append(ix.eobByCharge[*l.ChargeID], l)
		}
	}
	for _, p := range b.Payments {
		if p.ChargeID != nil {
			ix.paymentsByCharge[*p.ChargeID] = append(ix.paymentsByCharge[*p.ChargeID], p)
		}
	}
	for _, inv := range b.Invoices {
		for _, id := range inv.ChargeIDs {
			ix.invoicesByCharge[id] = append(ix.invoicesByCharge[id], inv)
		}
		if inv.Number != nil {
			ix.invoicesByNumber[*inv.Number] = append(ix.invoicesByNumber[*inv.Number], inv)
		}
	}
	for _, c := range b.Claims {
		if c.InvoiceNumber != nil {
			ix.claimsByInvoice[*c.InvoiceNumber] = append(ix.claimsByInvoice[*c.InvoiceNumber], c)
		}
	}
	for _, r := range b.Reconciliations {
		if r.InvoiceNumber != nil {
			ix.reconsByInvoice[*r.InvoiceNumber] = append(ix.reconsByInvoice[*r.InvoiceNumber], r)
		}
	}
	for _, r := range b.Remittances {
		if r.InvoiceNumber != nil {
			ix.remitsByInvoice[*r.InvoiceNumber] = append(ix.remitsByInvoice[*r.InvoiceNumber], r)
		}
	}
	for _, ev := range b.CollectionEvents {
		if enc, ok := collectionEncounter(g, ev); ok {
			ix.collectionsByEncounter[enc] = append(ix.collectionsByEncounter[enc], ev)
		}
	}
	return ix
}

// collectionEncounter resolves a collection event to a CSN, preferring its
// billing visit number.
func collectionEncounter(g *Graph, ev *CollectionEvent) (string, bool) {
	if ev.VisitNumber != nil {
		return g.ResolveVisit(*ev.VisitNumber), true
	}
	if ev.EncounterID != nil {
		return *ev.EncounterID, true
	}
	return "", false
}

// Encounter looks up an encounter by CSN.
func (ix *Index) Encounter(id string) (*Encounter, bool) {
	e, ok := ix.encounters[id]
	return e, ok
}

// Order looks up an order by id across all encounters.
func (ix *Index) Order(id string) (*Order, bool) {
	o, ok := ix.orders[id]
	return o, ok
}

// Message looks up a message by id.
func (ix *Index) Message(id string) (*Message, bool) {
	m, ok := ix.messages[id]
	return m, ok
}

// Charge looks up a charge by transaction id.
func (ix *Index) Charge(id string) (*Charge, bool) {
	c, ok := ix.charges[id]
	return c, ok
}

// ChargesForEncounter returns the charges whose visit number resolves to the CSN.
func (ix *Index) ChargesForEncounter(csn string) []*Charge { return ix.chargesByEncounter[csn] }

// ReplacementOf returns the charge that back-links to the original.
func (ix *Index) ReplacementOf(originalID string) (*Charge, bool) {
	c, ok := ix.replacementsByOriginal[originalID]
	return c, ok
}

// ActionsForCharge returns the actions recorded on a charge.
func (ix *Index) ActionsForCharge(chargeID string) []*Action { return ix.actionsByCharge[chargeID] }

// EOBLinesForCharge returns the EOB lines that reference a charge.
func (ix *Index) EOBLinesForCharge(chargeID string) []*EOBLine { return ix.eobByCharge[chargeID] }

// PaymentsForCharge returns the payments posted against a charge.
func (ix *Index) PaymentsForCharge(chargeID string) []*Payment { return ix.paymentsByCharge[chargeID] }

// InvoicesForCharge returns the invoices listing the charge as a member.
func (ix *Index) InvoicesForCharge(chargeID string) []*Invoice { return ix.invoicesByCharge[chargeID] }

// InvoicesByNumber returns the invoices carrying an invoice number.
func (ix *Index) InvoicesByNumber(number string) []*Invoice { return ix.invoicesByNumber[number] }

// ClaimsForInvoice returns claims filed under an invoice number.
func (ix *Index) ClaimsForInvoice(number string) []*Claim { return ix.claimsByInvoice[number] }

// ReconciliationsForInvoice returns reconciliation records for an invoice number.
func (ix *Index) ReconciliationsForInvoice(number string) []*Reconciliation {
	return ix.reconsByInvoice[number]
}

// RemittancesForInvoice returns remittances for an invoice number.
func (ix *Index) RemittancesForInvoice(number string) []*Remittance {
	return ix.remitsByInvoice[number]
}

// CollectionsForEncounter returns the collection events resolved to a CSN.
func (ix *Index) CollectionsForEncounter(csn string) []*CollectionEvent {
	return ix.collectionsByEncounter[csn]
}
