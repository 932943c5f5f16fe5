package projection

import (
	"encoding/json"
	"time"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

// ProjectedAtLayout formats the projection timestamp in UTC.
const ProjectedAtLayout = "2006-01-02T15:04:05Z"

// Options controls a projection run.
type Options struct {
	// Now stamps projectedAt. Zero means time.Now.
	Now time.Time
}

// Project derives the Clean Projection from a hydrated graph. The result
// depends only on the graph and Options.Now.
func Project(g *graph.Graph, opts Options) *Document {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	doc := &Document{
		SchemaVersion: SchemaVersion,
		Source:        g.Source,
		ProjectedAt:   now.UTC().Format(ProjectedAtLayout),
		Capabilities:  capabilities(g.Capabilities),
		Patient:       projectPatient(g.Patient),
		Encounters:    mapAll(g.Encounters, ProjectEncounter),
		Allergies:     mapAll(g.Allergies, projectAllergy),
		Problems:      mapAll(g.Problems, projectProblem),
		Medications:   mapAll(g.Medications, projectMedication),
		Immunizations: mapAll(g.Immunizations, projectImmunization),
		Messages:      mapAll(g.Messages, projectMessage),
		Coverage:      mapAll(g.Coverage, ProjectCoverage),
		History: History{
			Social:   mapAll(g.History.Social.Snapshots(), projectSnapshot),
			Surgical: mapAll(g.History.Surgical.Snapshots(), projectSnapshot),
			Family:   mapAll(g.History.Family.Snapshots(), projectSnapshot),
		},
	}
	b := g.Billing
	doc.Billing = Billing{
		Charges:          mapAll(b.Charges, func(c *graph.Charge) Charge { return ProjectCharge(g, c) }),
		Actions:          mapAll(b.Actions, ProjectAction),
		Invoices:         mapAll(b.Invoices, ProjectInvoice),
		Claims:           mapAll(b.Claims, ProjectClaim),
		Remittances:      mapAll(b.Remittances, ProjectRemittance),
		Reconciliations:  mapAll(b.Reconciliations, ProjectReconciliation),
		EOBLines:         mapAll(b.EOBLines, ProjectEOBLine),
		Payments:         mapAll(b.Payments, ProjectPayment),
		CollectionEvents: mapAll(b.CollectionEvents, ProjectCollectionEvent),
		Accounts:         mapAll(b.Accounts, projectAccount),
		Visits:           mapAll(b.Visits, projectBillingVisit),
	}
	return doc
}

// Marshal serializes a document as indented JSON with a trailing newline.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func capabilities(c graph.Capabilities) []Capability {
	keys := append([]string{model.KeyPatient, model.KeyHistory, model.KeyBilling}, model.CollectionKeys()...)
	out := make([]Capability, 0, len(keys))
	for _, k := range keys {
		out = append(out, Capability{Collection: k, Present: c.Has(k)})
	}
	return out
}

func projectPatient(p *graph.Patient) Patient {
	return Patient{
		ID:        p.ID,
		Name:      p.Name,
		MRN:       p.MRN,
		BirthDate: normalize.FormatDate(p.BirthDate),
		Sex:       p.Sex,
		City:      p.City,
		State:     p.State,
		Raw:       raw(p.Raw),
	}
}

// ProjectEncounter projects one encounter with its orders, diagnoses and notes.
func ProjectEncounter(e *graph.Encounter) Encounter {
	return Encounter{
		ID:         e.ID,
		Date:       normalize.FormatDate(e.Date),
		Type:       e.Type,
		Department: e.Department,
		Provider:   e.Provider,
		Reason:     e.Reason,
		Orders:     mapAll(e.Orders, projectOrder),
		Diagnoses:  mapAll(e.Diagnoses, projectDiagnosis),
		Notes:      mapAll(e.Notes, projectNote),
		Raw:        raw(e.Raw),
	}
}

func projectOrder(o *graph.Order) Order {
	return Order{
		ID:            o.ID,
		EncounterID:   o.EncounterID,
		Description:   o.Description,
		ProcedureCode: o.ProcedureCode,
		Status:        o.Status,
		OrderedAt:     normalize.FormatDateTime(o.OrderedAt),
		Results:       mapAll(o.Results, projectResult),
		Raw:           raw(o.Raw),
	}
}

func projectResult(r *graph.Result) Result {
	return Result{
		ID:        r.ID,
		Line:      r.Line,
		Component: r.Component,
		Value:     r.Value,
		Unit:      r.Unit,
		Flag:      r.Flag,
		ResultAt:  normalize.FormatDateTime(r.ResultAt),
		Raw:       raw(r.Raw),
	}
}

func projectDiagnosis(d *graph.Diagnosis) Diagnosis {
	return Diagnosis{ID: d.ID, Line: d.Line, Name: d.Name, Code: d.Code, Primary: d.Primary, Raw: raw(d.Raw)}
}

func projectNote(n *graph.Note) Note {
	return Note{
		ID:        n.ID,
		Type:      n.Type,
		Author:    n.Author,
		CreatedAt: normalize.FormatDateTime(n.CreatedAt),
		Text:      n.Text,
		Raw:       raw(n.Raw),
	}
}

func projectAllergy(a *graph.Allergy) Allergy {
	return Allergy{
		ID:                  a.ID,
		Allergen:            a.Allergen,
		Reaction:            a.Reaction,
		Severity:            a.Severity,
		Status:              a.Status,
		NotedDate:           normalize.FormatDate(a.NotedDate),
		RecordedEncounterID: a.RecordedCSN,
		Raw:                 raw(a.Raw),
	}
}

func projectProblem(p *graph.Problem) Problem {
	return Problem{
		ID:                  p.ID,
		Name:                p.Name,
		Code:                p.Code,
		Status:              p.Status,
		NotedDate:           normalize.FormatDate(p.NotedDate),
		ResolvedDate:        normalize.FormatDate(p.ResolvedDate),
		RecordedEncounterID: p.RecordedCSN,
		Raw:                 raw(p.Raw),
	}
}

func projectMedication(m *graph.Medication) Medication {
	return Medication{
		ID:          m.ID,
		Name:        m.Name,
		Sig:         m.Sig,
		Route:       m.Route,
		Status:      m.Status,
		StartDate:   normalize.FormatDate(m.StartDate),
		EndDate:     normalize.FormatDate(m.EndDate),
		EncounterID: m.EncounterID,
		Raw:         raw(m.Raw),
	}
}

func projectImmunization(i *graph.Immunization) Immunization {
	return Immunization{
		ID:          i.ID,
		Name:        i.Name,
		Dose:        i.Dose,
		Date:        normalize.FormatDate(i.Date),
		EncounterID: i.EncounterID,
		Raw:         raw(i.Raw),
	}
}

func projectMessage(m *graph.Message) Message {
	return Message{
		ID:          m.ID,
		Subject:     m.Subject,
		Type:        m.Type,
		Body:        m.Body,
		SentAt:      normalize.FormatDateTime(m.SentAt),
		EncounterID: m.EncounterID,
		OrderID:     m.OrderID,
		Raw:         raw(m.Raw),
	}
}

// ProjectCoverage projects one coverage record.
func ProjectCoverage(c *graph.Coverage) Coverage {
	return Coverage{
		ID:              c.ID,
		Payer:           c.Payer,
		Plan:            c.Plan,
		MemberID:        c.MemberID,
		EffectiveDate:   normalize.FormatDate(c.EffectiveFrom),
		TerminationDate: normalize.FormatDate(c.EffectiveTo),
		Raw:             raw(c.Raw),
	}
}

func projectSnapshot(s *graph.Snapshot) Snapshot {
	return Snapshot{
		ID:                  s.ID,
		Date:                normalize.FormatDate(s.Date),
		EncounterID:         s.ContactCSN,
		ReviewedEncounterID: s.ReviewedCSN,
		Items: mapAll(s.Items, func(it *graph.HistoryItem) HistoryItem {
			return HistoryItem{
				Line:   it.Line,
				Name:   it.Name,
				Value:  it.Value,
				Date:   normalize.FormatDate(it.Date),
				Detail: it.Detail,
				Raw:    raw(it.Raw),
			}
		}),
		Raw: raw(s.Raw),
	}
}

// ProjectCharge projects a charge. The graph resolves its encounter and
// replacement; pass nil to leave both as recorded.
func ProjectCharge(g *graph.Graph, c *graph.Charge) Charge {
	out := Charge{
		ID:                  c.ID,
		Amount:              c.Amount,
		OutstandingAmount:   c.OutstandingAmount,
		MatchedTotal:        c.MatchedTotal(),
		ServiceDate:         normalize.FormatDate(c.ServiceDate),
		PostDate:            normalize.FormatDate(c.PostDate),
		ProcedureCode:       c.ProcedureCode,
		ProcedureName:       c.ProcedureName,
		Modifiers:           nonNil(c.Modifiers),
		VisitNumber:         c.VisitNumber,
		AccountID:           c.AccountID,
		InvoiceNumber:       c.InvoiceNumber,
		Voided:              c.Voided,
		VoidDate:            normalize.FormatDate(c.VoidDate),
		OriginalChargeID:    c.OriginalTxID,
		ReplacementChargeID: c.RepostTxID,
		Balanced:            c.Balanced(),
		Matches:             mapAll(c.Matches, projectMatch),
		Raw:                 raw(c.Raw),
	}
	if c.Voided {
		zero := c.Outstanding()
		out.OutstandingAmount = &zero
	}
	if g != nil && c.VisitNumber != nil {
		enc := g.ResolveVisit(*c.VisitNumber)
		out.EncounterID = &enc
	}
	if g != nil && out.ReplacementChargeID == nil {
		if r := c.Replacement(g); r != nil {
			id := r.ID
			out.ReplacementChargeID = &id
		}
	}
	return out
}

func projectMatch(m *graph.Match) Match {
	return Match{
		Line:            m.Line,
		Date:            normalize.FormatDate(m.Date),
		Amount:          m.Amount,
		InsuranceAmount: m.InsuranceAmount,
		PatientAmount:   m.PatientAmount,
		MatchedTxID:     m.MatchedTxID,
		Raw:             raw(m.Raw),
	}
}

// ProjectAction projects a transaction action with its raw amount.
func ProjectAction(a *graph.Action) Action {
	return Action{
		ID:                a.ID,
		ChargeID:          a.ChargeID,
		Line:              a.Line,
		Type:              a.Type,
		Amount:            a.Amount,
		ReasonCode:        a.ReasonCode,
		Date:              normalize.FormatDate(a.Date),
		OutstandingBefore: a.OutstandingBefore,
		OutstandingAfter:  a.OutstandingAfter,
		Raw:               raw(a.Raw),
	}
}

// ProjectInvoice projects an invoice and its member charge ids.
func ProjectInvoice(inv *graph.Invoice) Invoice {
	return Invoice{
		ID:               inv.ID,
		Number:           inv.Number,
		Payer:            inv.Payer,
		Status:           inv.Status,
		Date:             normalize.FormatDate(inv.Date),
		ServiceStartDate: normalize.FormatDate(inv.ServiceFrom),
		ServiceEndDate:   normalize.FormatDate(inv.ServiceTo),
		Amount:           inv.Amount,
		ChargeIDs:        nonNil(append([]string(nil), inv.ChargeIDs...)),
		Raw:              raw(inv.Raw),
	}
}

// ProjectClaim projects a claim.
func ProjectClaim(c *graph.Claim) Claim {
	return Claim{
		ID:            c.ID,
		InvoiceNumber: c.InvoiceNumber,
		Status:        c.Status,
		TotalCharged:  c.TotalCharged,
		FiledDate:     normalize.FormatDate(c.FiledDate),
		Payer:         c.Payer,
		Raw:           raw(c.Raw),
	}
}

// ProjectReconciliation projects a reconciliation with its status history
// in source order.
func ProjectReconciliation(r *graph.Reconciliation) Reconciliation {
	return Reconciliation{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		Status:        r.Status,
		Payer:         r.Payer,
		StatusHistory: mapAll(r.StatusHistory, func(s *graph.StatusEntry) StatusEntry {
			return StatusEntry{
				Line:     s.Line,
				Date:     normalize.FormatDate(s.Date),
				OrderKey: s.OrderKey,
				Status:   s.Status,
				Detail:   s.Detail,
				Raw:      raw(s.Raw),
			}
		}),
		Raw: raw(r.Raw),
	}
}

// ProjectRemittance projects a remittance and its adjustment lines.
func ProjectRemittance(r *graph.Remittance) Remittance {
	return Remittance{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		ChargedAmount: r.ChargedAmount,
		PaidAmount:    r.PaidAmount,
		PaymentDate:   normalize.FormatDate(r.PaymentDate),
		Payer:         r.Payer,
		ClaimStatus:   r.ClaimStatus,
		Reversal:      r.IsReversal(),
		Adjustments: mapAll(r.Adjustments, func(a *graph.RemitAdjustment) RemitAdjustment {
			return RemitAdjustment{
				Line:       a.Line,
				GroupCode:  a.GroupCode,
				ReasonCode: a.ReasonCode,
				Amount:     a.Amount,
				Raw:        raw(a.Raw),
			}
		}),
		Raw: raw(r.Raw),
	}
}

// ProjectEOBLine projects an EOB line.
func ProjectEOBLine(l *graph.EOBLine) EOBLine {
	return EOBLine{
		ID:            l.ID,
		ChargeID:      l.ChargeID,
		ProcedureCode: l.ProcedureCode,
		Billed:        l.Billed,
		Allowed:       l.Allowed,
		Paid:          l.Paid,
		Deductible:    l.Deductible,
		Coinsurance:   l.Coinsurance,
		Copay:         l.Copay,
		Date:          normalize.FormatDate(l.Date),
		Raw:           raw(l.Raw),
	}
}

// ProjectPayment projects a payment.
func ProjectPayment(p *graph.Payment) Payment {
	return Payment{
		ID:       p.ID,
		ChargeID: p.ChargeID,
		Amount:   p.Amount,
		PostDate: normalize.FormatDate(p.PostDate),
		Source:   p.Source,
		Payer:    p.Payer,
		Raw:      raw(p.Raw),
	}
}

// ProjectCollectionEvent projects a collection event.
func ProjectCollectionEvent(ev *graph.CollectionEvent) CollectionEvent {
	return CollectionEvent{
		ID:              ev.ID,
		VisitNumber:     ev.VisitNumber,
		EncounterID:     ev.EncounterID,
		WorkflowType:    ev.WorkflowType,
		Date:            normalize.FormatDate(ev.Date),
		AmountDue:       ev.AmountDue,
		AmountCollected: ev.AmountCollected,
		Raw:             raw(ev.Raw),
	}
}

func projectAccount(a *graph.Account) Account {
	return Account{ID: a.ID, Name: a.Name, Type: a.Type, Balance: a.Balance, Raw: raw(a.Raw)}
}

func projectBillingVisit(v *graph.BillingVisit) BillingVisit {
	return BillingVisit{ID: v.ID, EncounterID: v.EncounterID, Raw: raw(v.Raw)}
}

// raw encodes the unpromoted columns. encoding/json sorts map keys, so the
// payload is stable.
func raw(r model.Row) json.RawMessage {
	if len(r) == 0 {
		return json.RawMessage(`{}`)
	}
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func mapAll[T, U any](in []*T, fn func(*T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
