package graph

import "errors"

// ErrMalformedDocument is returned when the input is not a traversable
// document: it does not decode, or the top level is not an object.
var ErrMalformedDocument = errors.New("malformed document")

// Graph is a hydrated patient record. It is read-only once Hydrate returns;
// callers hold pointers into it and must not modify what they point at.
type Graph struct {
	Source        string
	Patient       *Patient
	Encounters    []*Encounter
	Allergies     []*Allergy
	Problems      []*Problem
	Medications   []*Medication
	Immunizations []*Immunization
	Messages      []*Message
	Coverage      []*Coverage
	History       History
	Billing       Billing
	Capabilities  Capabilities

	visitMap map[string]string
	index    *Index
}

// History groups the snapshot timelines of each history section.
type History struct {
	Social   *Timeline
	Surgical *Timeline
	Family   *Timeline
}

// Kind returns the timeline for one history section, or nil.
func (h History) Kind(kind string) *Timeline {
	switch kind {
	case HistorySocial:
		return h.Social
	case HistorySurgical:
		return h.Surgical
	case HistoryFamily:
		return h.Family
	}
	return nil
}

// Billing is the revenue-cycle sub-graph.
type Billing struct {
	Charges          []*Charge
	Actions          []*Action
	Invoices         []*Invoice
	Claims           []*Claim
	Remittances      []*Remittance
	Reconciliations  []*Reconciliation
	EOBLines         []*EOBLine
	Payments         []*Payment
	CollectionEvents []*CollectionEvent
	Accounts         []*Account
	Visits           []*BillingVisit
}

// Index returns the lookup maps built during hydration.
func (g *Graph) Index() *Index { return g.index }

// ResolveVisit maps a billing visit number to an encounter CSN. Unmapped
// visit numbers resolve to themselves.
func (g *Graph) ResolveVisit(visitNumber string) string {
	if csn, ok := g.visitMap[visitNumber]; ok && csn != "" {
		return csn
	}
	return visitNumber
}

// VisitMap returns a copy of the effective visit number to CSN mapping.
func (g *Graph) VisitMap() map[string]string {
	out := make(map[string]string, len(g.visitMap))
	for k, v := range g.visitMap {
		out[k] = v
	}
	return out
}
