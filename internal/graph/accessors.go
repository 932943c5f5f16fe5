package graph

// Cross-reference accessors. Each takes the graph explicitly; entities never
// hold pointers back into it.

func encounterByRef(g *Graph, id *string) *Encounter {
	if id == nil {
		return nil
	}
	e, _ := g.index.Encounter(*id)
	return e
}

// Encounter returns the encounter the medication was ordered in.
func (m *Medication) Encounter(g *Graph) *Encounter { return encounterByRef(g, m.EncounterID) }

// Encounter returns the encounter the message refers to.
func (m *Message) Encounter(g *Graph) *Encounter { return encounterByRef(g, m.EncounterID) }

// Order returns the order the message refers to.
func (m *Message) Order(g *Graph) *Order {
	if m.OrderID == nil {
		return nil
	}
	o, _ := g.index.Order(*m.OrderID)
	return o
}

// Encounter returns the encounter the order was placed in.
func (o *Order) Encounter(g *Graph) *Encounter { return encounterByRef(g, o.EncounterID) }

// RecordedDuring returns the encounter that recorded the allergy.
func (a *Allergy) RecordedDuring(g *Graph) *Encounter { return encounterByRef(g, a.RecordedCSN) }

// RecordedDuring returns the encounter that recorded the problem.
func (p *Problem) RecordedDuring(g *Graph) *Encounter { return encounterByRef(g, p.RecordedCSN) }

// Encounter returns the encounter the immunization was given in.
func (i *Immunization) Encounter(g *Graph) *Encounter { return encounterByRef(g, i.EncounterID) }

// Encounter resolves the charge's billing visit number to an encounter.
func (c *Charge) Encounter(g *Graph) *Encounter {
	if c.VisitNumber == nil {
		return nil
	}
	e, _ := g.index.Encounter(g.ResolveVisit(*c.VisitNumber))
	return e
}

// Original returns the charge this one replaces.
func (c *Charge) Original(g *Graph) *Charge {
	if c.OriginalTxID == nil {
		return nil
	}
	o, _ := g.index.Charge(*c.OriginalTxID)
	return o
}

// Replacement returns the charge that replaced this one, following the
// forward link first and the replacement's back-link second.
func (c *Charge) Replacement(g *Graph) *Charge {
	if c.RepostTxID != nil {
		if r, ok := g.index.Charge(*c.RepostTxID); ok {
			return r
		}
	}
	r, _ := g.index.ReplacementOf(c.ID)
	return r
}

// Invoices returns every invoice the charge belongs to, by membership or by
// its own invoice number, without duplicates.
func (c *Charge) Invoices(g *Graph) []*Invoice {
	seen := make(map[string]bool)
	var out []*Invoice
	add := func(list []*Invoice) {
		for _, inv := range list {
			if !seen[inv.ID] {
				seen[inv.ID] = true
				out = append(out, inv)
			}
		}
	}
	add(g.index.InvoicesForCharge(c.ID))
	if c.InvoiceNumber != nil {
		add(g.index.InvoicesByNumber(*c.InvoiceNumber))
	}
	return out
}

// Charges returns the member charges that exist in the graph, in membership order.
func (inv *Invoice) Charges(g *Graph) []*Charge {
	out := make([]*Charge, 0, len(inv.ChargeIDs))
	for _, id := range inv.ChargeIDs {
		if c, ok := g.index.Charge(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// Charge returns the charge the EOB line adjudicates.
func (l *EOBLine) Charge(g *Graph) *Charge {
	if l.ChargeID == nil {
		return nil
	}
	c, _ := g.index.Charge(*l.ChargeID)
	return c
}
