package graph

import (
	"time"

	"github.com/gyeh/ehiledger/internal/model"
)

// balanceTolerance is the rounding slack allowed when checking that a charge
// nets to its outstanding amount.
const balanceTolerance model.Money = 1

// Charge is one billed service line from ARPB_TRANSACTIONS.
//
// VisitNumber is the billing-side visit identifier. It is not a CSN and must
// be resolved through the visit map before it can be compared with one.
type Charge struct {
	ID                string
	Amount            *model.Money
	OutstandingAmount *model.Money
	ServiceDate       *time.Time
	PostDate          *time.Time
	ProcedureCode     *string
	ProcedureName     *string
	Modifiers         []string
	VisitNumber       *string
	AccountID         *string
	InvoiceNumber     *string
	Voided            bool
	VoidDate          *time.Time
	OriginalTxID      *string // ORIG_REPOST_TX_ID: the charge this one replaces
	RepostTxID        *string // REPOST_TX_ID: the charge that replaced this one
	Matches           []*Match
	Raw               model.Row
}

// Outstanding returns the balance still owed. Voided charges owe nothing.
func (c *Charge) Outstanding() model.Money {
	if c.Voided || c.OutstandingAmount == nil {
		return 0
	}
	return *c.OutstandingAmount
}

// MatchedTotal sums the credits applied against the charge. Voided charges
// report zero.
func (c *Charge) MatchedTotal() model.Money {
	if c.Voided {
		return 0
	}
	var total model.Money
	for _, m := range c.Matches {
		total += model.Sum(m.Amount)
	}
	return total
}

// Charged returns the billed amount counted toward totals: zero when voided.
func (c *Charge) Charged() model.Money {
	if c.Voided {
		return 0
	}
	return model.Sum(c.Amount)
}

// Balanced reports whether amount plus matched credits equals the outstanding
// amount within one cent. Voided charges are balanced when they owe nothing.
func (c *Charge) Balanced() bool {
	if c.Voided {
		return c.Outstanding() == 0
	}
	return model.Within(c.Charged()+c.MatchedTotal(), c.Outstanding(), balanceTolerance)
}

// Match is a credit applied against a charge.
type Match struct {
	Line            *int64
	Date            *time.Time
	Amount          *model.Money
	InsuranceAmount *model.Money
	PatientAmount   *model.Money
	MatchedTxID     *string
	Raw             model.Row
}

// Action is one state transition recorded on a charge (ARPB_TX_ACTIONS).
type Action struct {
	ID                string
	ChargeID          *string
	Line              *int64
	Type              *string
	Amount            *model.Money
	ReasonCode        *string
	Date              *time.Time
	OutstandingBefore *model.Money
	OutstandingAfter  *model.Money
	Raw               model.Row
}

// Invoice groups charges into a payer-facing claim.
type Invoice struct {
	ID          string
	Number      *string
	Payer       *string
	Status      *string
	Date        *time.Time
	ServiceFrom *time.Time
	ServiceTo   *time.Time
	Amount      *model.Money
	// ChargeIDs is the member charge set. It comes from the "charges" child
	// rows when present, otherwise from the "chargeIds" array.
	ChargeIDs []string
	Raw       model.Row
}

// Claim is a filed claim record keyed by invoice number.
type Claim struct {
	ID            string
	InvoiceNumber *string
	Status        *string
	TotalCharged  *model.Money
	FiledDate     *time.Time
	Payer         *string
	Raw           model.Row
}

// Reconciliation tracks an invoice through the payer lifecycle.
type Reconciliation struct {
	ID            string
	InvoiceNumber *string
	Status        *string
	Payer         *string
	StatusHistory []*StatusEntry
	Raw           model.Row
}

// StatusEntry is one step of a reconciliation. OrderKey orders entries that
// share a calendar date.
type StatusEntry struct {
	Line     *int64
	Date     *time.Time
	OrderKey float64
	Status   *string
	Detail   *string
	Raw      model.Row
}

// Remittance is one payer adjudication response.
type Remittance struct {
	ID            string
	InvoiceNumber *string
	ChargedAmount *model.Money
	PaidAmount    *model.Money
	PaymentDate   *time.Time
	Payer         *string
	ClaimStatus   *string
	Adjustments   []*RemitAdjustment
	Raw           model.Row
}

// IsReversal reports a negative charged amount, which undoes a prior remittance.
func (r *Remittance) IsReversal() bool {
	return r.ChargedAmount != nil && *r.ChargedAmount < 0
}

// RemitAdjustment is one CARC-style adjustment line.
type RemitAdjustment struct {
	Line       *int64
	GroupCode  *string
	ReasonCode *string
	Amount     *model.Money
	Raw        model.Row
}

// EOBLine is a per-procedure adjudication detail linked to a charge.
type EOBLine struct {
	ID            string
	ChargeID      *string
	ProcedureCode *string
	Billed        *model.Money
	Allowed       *model.Money
	Paid          *model.Money
	Deductible    *model.Money
	Coinsurance   *model.Money
	Copay         *model.Money
	Date          *time.Time
	Raw           model.Row
}

// Payment is a posted credit linked to a charge.
type Payment struct {
	ID       string
	ChargeID *string
	Amount   *model.Money
	PostDate *time.Time
	Source   *string
	Payer    *string
	Raw      model.Row
}

// CollectionEvent is a front-desk financial interaction tied to a visit.
type CollectionEvent struct {
	ID              string
	VisitNumber     *string
	EncounterID     *string
	WorkflowType    *string
	Date            *time.Time
	AmountDue       *model.Money
	AmountCollected *model.Money
	Raw             model.Row
}

// Account is a guarantor account.
type Account struct {
	ID      string
	Name    *string
	Type    *string
	Balance *model.Money
	Raw     model.Row
}

// BillingVisit maps a billing visit number to its primary encounter CSN.
type BillingVisit struct {
	ID          string
	EncounterID *string
	Raw         model.Row
}
