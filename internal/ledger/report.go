package ledger

import (
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/projection"
)

// Report is the per-encounter billing report for one patient record.
type Report struct {
	GeneratedAt string         `json:"generatedAt"`
	Patient     PatientSummary `json:"patient"`
	Totals      Totals         `json:"totals"`
	Visits      []VisitReport  `json:"visits"`
}

// PatientSummary carries the demographics the report header shows.
type PatientSummary struct {
	Name      *string               `json:"name"`
	MRN       *string               `json:"mrn"`
	BirthDate *string               `json:"birthDate"`
	Coverage  []projection.Coverage `json:"coverage"`
}

// VisitReport is one encounter and, when it has charges, its reconciled
// billing. Billing serializes as null for visits without charges.
type VisitReport struct {
	Encounter EncounterSummary `json:"encounter"`
	Billing   *VisitBilling    `json:"billing"`
}

// EncounterSummary identifies the visit a report entry belongs to.
type EncounterSummary struct {
	ID         string  `json:"id"`
	Date       *string `json:"date"`
	Type       *string `json:"type"`
	Department *string `json:"department"`
	Provider   *string `json:"provider"`
}

// VisitBilling is the reconciled ledger of one visit.
type VisitBilling struct {
	Summary     Summary                      `json:"summary"`
	Timeline    []Event                      `json:"timeline"`
	Charges     []projection.Charge          `json:"charges"`
	Invoices    []projection.Invoice         `json:"invoices"`
	Claims      []projection.Claim           `json:"claims"`
	Recons      []projection.Reconciliation  `json:"recons"`
	Remits      []projection.Remittance      `json:"remits"`
	Actions     []projection.Action          `json:"actions"`
	EOBs        []projection.EOBLine         `json:"eobs"`
	Payments    []projection.Payment         `json:"payments"`
	Collections []projection.CollectionEvent `json:"collections"`
}

// Summary holds the financial totals of one visit.
type Summary struct {
	TotalCharged       model.Money `json:"totalCharged"`
	TotalPaid          model.Money `json:"totalPaid"`
	TotalAdjusted      model.Money `json:"totalAdjusted"`
	Outstanding        model.Money `json:"outstanding"`
	HasRejectedInvoice bool        `json:"hasRejectedInvoice"`
	HasVoid            bool        `json:"hasVoid"`
	ChargeCount        int         `json:"chargeCount"`
	InvoiceCount       int         `json:"invoiceCount"`
	RemittanceCount    int         `json:"remittanceCount"`
	EventCount         int         `json:"eventCount"`
	UnbalancedCharges  int         `json:"unbalancedCharges"`
}

// Totals are the record-wide figures, computed with the same rules as the
// per-visit summary but over every billing record in the graph.
type Totals struct {
	Billed                model.Money `json:"billed"`
	Paid                  model.Money `json:"paid"`
	Adjusted              model.Money `json:"adjusted"`
	Outstanding           model.Money `json:"outstanding"`
	ClaimCount            int         `json:"claimCount"`
	RejectedCount         int         `json:"rejectedCount"`
	Encounters            int         `json:"encounters"`
	EncountersWithBilling int         `json:"encountersWithBilling"`
}
