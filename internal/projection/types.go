package projection

import (
	"encoding/json"

	"github.com/gyeh/ehiledger/internal/model"
)

// SchemaVersion tags every projected document.
const SchemaVersion = "ehi-clean/1"

// Field conventions: optional values are pointers without omitempty so they
// serialize as null; collections are never nil; keys ending in Date, At or
// Time carry ISO strings; identifier keys carry strings.

// Document is the Clean Projection of one patient record.
type Document struct {
	SchemaVersion string         `json:"schemaVersion"`
	Source        string         `json:"source"`
	ProjectedAt   string         `json:"projectedAt"`
	Capabilities  []Capability   `json:"capabilities"`
	Patient       Patient        `json:"patient"`
	Encounters    []Encounter    `json:"encounters"`
	Allergies     []Allergy      `json:"allergies"`
	Problems      []Problem      `json:"problems"`
	Medications   []Medication   `json:"medications"`
	Immunizations []Immunization `json:"immunizations"`
	Messages      []Message      `json:"messages"`
	Coverage      []Coverage     `json:"coverage"`
	History       History        `json:"history"`
	Billing       Billing        `json:"billing"`
}

// Capability records whether a collection was present in the source.
type Capability struct {
	Collection string `json:"collection"`
	Present    bool   `json:"present"`
}

type Patient struct {
	ID        string          `json:"id"`
	Name      *string         `json:"name"`
	MRN       *string         `json:"mrn"`
	BirthDate *string         `json:"birthDate"`
	Sex       *string         `json:"sex"`
	City      *string         `json:"city"`
	State     *string         `json:"state"`
	Raw       json.RawMessage `json:"_raw"`
}

type Encounter struct {
	ID         string          `json:"id"`
	Date       *string         `json:"date"`
	Type       *string         `json:"type"`
	Department *string         `json:"department"`
	Provider   *string         `json:"provider"`
	Reason     *string         `json:"reason"`
	Orders     []Order         `json:"orders"`
	Diagnoses  []Diagnosis     `json:"diagnoses"`
	Notes      []Note          `json:"notes"`
	Raw        json.RawMessage `json:"_raw"`
}

type Order struct {
	ID            string          `json:"id"`
	EncounterID   *string         `json:"encounterId"`
	Description   *string         `json:"description"`
	ProcedureCode *string         `json:"procedureCode"`
	Status        *string         `json:"status"`
	OrderedAt     *string         `json:"orderedAt"`
	Results       []Result        `json:"results"`
	Raw           json.RawMessage `json:"_raw"`
}

type Result struct {
	ID        string          `json:"id"`
	Line      *int64          `json:"line"`
	Component *string         `json:"component"`
	Value     *string         `json:"value"`
	Unit      *string         `json:"unit"`
	Flag      *string         `json:"flag"`
	ResultAt  *string         `json:"resultAt"`
	Raw       json.RawMessage `json:"_raw"`
}

type Diagnosis struct {
	ID      string          `json:"id"`
	Line    *int64          `json:"line"`
	Name    *string         `json:"name"`
	Code    *string         `json:"code"`
	Primary bool            `json:"primary"`
	Raw     json.RawMessage `json:"_raw"`
}

type Note struct {
	ID        string          `json:"id"`
	Type      *string         `json:"type"`
	Author    *string         `json:"author"`
	CreatedAt *string         `json:"createdAt"`
	Text      *string         `json:"text"`
	Raw       json.RawMessage `json:"_raw"`
}

type Allergy struct {
	ID                  string          `json:"id"`
	Allergen            *string         `json:"allergen"`
	Reaction            *string         `json:"reaction"`
	Severity            *string         `json:"severity"`
	Status              *string         `json:"status"`
	NotedDate           *string         `json:"notedDate"`
	RecordedEncounterID *string         `json:"recordedEncounterId"`
	Raw                 json.RawMessage `json:"_raw"`
}

type Problem struct {
	ID                  string          `json:"id"`
	Name                *string         `json:"name"`
	Code                *string         `json:"code"`
	Status              *string         `json:"status"`
	NotedDate           *string         `json:"notedDate"`
	ResolvedDate        *string         `json:"resolvedDate"`
	RecordedEncounterID *string         `json:"recordedEncounterId"`
	Raw                 json.RawMessage `json:"_raw"`
}

type Medication struct {
	ID          string          `json:"id"`
	Name        *string         `json:"name"`
	Sig         *string         `json:"sig"`
	Route       *string         `json:"route"`
	Status      *string         `json:"status"`
	StartDate   *string         `json:"startDate"`
	EndDate     *string         `json:"endDate"`
	EncounterID *string         `json:"encounterId"`
	Raw         json.RawMessage `json:"_raw"`
}

type Immunization struct {
	ID          string          `json:"id"`
	Name        *string         `json:"name"`
	Dose        *string         `json:"dose"`
	Date        *string         `json:"date"`
	EncounterID *string         `json:"encounterId"`
	Raw         json.RawMessage `json:"_raw"`
}

type Message struct {
	ID          string          `json:"id"`
	Subject     *string         `json:"subject"`
	Type        *string         `json:"type"`
	Body        *string         `json:"body"`
	SentAt      *string         `json:"sentAt"`
	EncounterID *string         `json:"encounterId"`
	OrderID     *string         `json:"orderId"`
	Raw         json.RawMessage `json:"_raw"`
}

type Coverage struct {
	ID              string          `json:"id"`
	Payer           *string         `json:"payer"`
	Plan            *string         `json:"plan"`
	MemberID        *string         `json:"memberId"`
	EffectiveDate   *string         `json:"effectiveDate"`
	TerminationDate *string         `json:"terminationDate"`
	Raw             json.RawMessage `json:"_raw"`
}

type History struct {
	Social   []Snapshot `json:"social"`
	Surgical []Snapshot `json:"surgical"`
	Family   []Snapshot `json:"family"`
}

type Snapshot struct {
	ID                  string          `json:"id"`
	Date                *string         `json:"date"`
	EncounterID         *string         `json:"encounterId"`
	ReviewedEncounterID *string         `json:"reviewedEncounterId"`
	Items               []HistoryItem   `json:"items"`
	Raw                 json.RawMessage `json:"_raw"`
}

type HistoryItem struct {
	Line   *int64          `json:"line"`
	Name   *string         `json:"name"`
	Value  *string         `json:"value"`
	Date   *string         `json:"date"`
	Detail *string         `json:"detail"`
	Raw    json.RawMessage `json:"_raw"`
}

type Billing struct {
	Charges          []Charge          `json:"charges"`
	Actions          []Action          `json:"actions"`
	Invoices         []Invoice         `json:"invoices"`
	Claims           []Claim           `json:"claims"`
	Remittances      []Remittance      `json:"remittances"`
	Reconciliations  []Reconciliation  `json:"reconciliations"`
	EOBLines         []EOBLine         `json:"eobLines"`
	Payments         []Payment         `json:"payments"`
	CollectionEvents []CollectionEvent `json:"collectionEvents"`
	Accounts         []Account         `json:"accounts"`
	Visits           []BillingVisit    `json:"visits"`
}

// Charge reports Outstanding and MatchedTotal as the ledger sees them: both
// are zero on a voided charge while Amount keeps the original value.
type Charge struct {
	ID                  string          `json:"id"`
	Amount              *model.Money    `json:"amount"`
	OutstandingAmount   *model.Money    `json:"outstandingAmount"`
	MatchedTotal        model.Money     `json:"matchedTotal"`
	ServiceDate         *string         `json:"serviceDate"`
	PostDate            *string         `json:"postDate"`
	ProcedureCode       *string         `json:"procedureCode"`
	ProcedureName       *string         `json:"procedureName"`
	Modifiers           []string        `json:"modifiers"`
	VisitNumber         *string         `json:"visitNumber"`
	EncounterID         *string         `json:"encounterId"`
	AccountID           *string         `json:"accountId"`
	InvoiceNumber       *string         `json:"invoiceNumber"`
	Voided              bool            `json:"voided"`
	VoidDate            *string         `json:"voidDate"`
	OriginalChargeID    *string         `json:"originalChargeId"`
	ReplacementChargeID *string         `json:"replacementChargeId"`
	Balanced            bool            `json:"balanced"`
	Matches             []Match         `json:"matches"`
	Raw                 json.RawMessage `json:"_raw"`
}

type Match struct {
	Line            *int64          `json:"line"`
	Date            *string         `json:"date"`
	Amount          *model.Money    `json:"amount"`
	InsuranceAmount *model.Money    `json:"insuranceAmount"`
	PatientAmount   *model.Money    `json:"patientAmount"`
	MatchedTxID     *string         `json:"matchedTxId"`
	Raw             json.RawMessage `json:"_raw"`
}

type Action struct {
	ID                string          `json:"id"`
	ChargeID          *string         `json:"chargeId"`
	Line              *int64          `json:"line"`
	Type              *string         `json:"type"`
	Amount            *model.Money    `json:"amount"`
	ReasonCode        *string         `json:"reasonCode"`
	Date              *string         `json:"date"`
	OutstandingBefore *model.Money    `json:"outstandingBefore"`
	OutstandingAfter  *model.Money    `json:"outstandingAfter"`
	Raw               json.RawMessage `json:"_raw"`
}

type Invoice struct {
	ID               string          `json:"id"`
	Number           *string         `json:"number"`
	Payer            *string         `json:"payer"`
	Status           *string         `json:"status"`
	Date             *string         `json:"date"`
	ServiceStartDate *string         `json:"serviceStartDate"`
	ServiceEndDate   *string         `json:"serviceEndDate"`
	Amount           *model.Money    `json:"amount"`
	ChargeIDs        []string        `json:"chargeIds"`
	Raw              json.RawMessage `json:"_raw"`
}

type Claim struct {
	ID            string          `json:"id"`
	InvoiceNumber *string         `json:"invoiceNumber"`
	Status        *string         `json:"status"`
	TotalCharged  *model.Money    `json:"totalCharged"`
	FiledDate     *string         `json:"filedDate"`
	Payer         *string         `json:"payer"`
	Raw           json.RawMessage `json:"_raw"`
}

type Reconciliation struct {
	ID            string          `json:"id"`
	InvoiceNumber *string         `json:"invoiceNumber"`
	Status        *string         `json:"status"`
	Payer         *string         `json:"payer"`
	StatusHistory []StatusEntry   `json:"statusHistory"`
	Raw           json.RawMessage `json:"_raw"`
}

type StatusEntry struct {
	Line     *int64          `json:"line"`
	Date     *string         `json:"date"`
	OrderKey float64         `json:"orderKey"`
	Status   *string         `json:"status"`
	Detail   *string         `json:"detail"`
	Raw      json.RawMessage `json:"_raw"`
}

type Remittance struct {
	ID            string            `json:"id"`
	InvoiceNumber *string           `json:"invoiceNumber"`
	ChargedAmount *model.Money      `json:"chargedAmount"`
	PaidAmount    *model.Money      `json:"paidAmount"`
	PaymentDate   *string           `json:"paymentDate"`
	Payer         *string           `json:"payer"`
	ClaimStatus   *string           `json:"claimStatus"`
	Reversal      bool              `json:"reversal"`
	Adjustments   []RemitAdjustment `json:"adjustments"`
	Raw           json.RawMessage   `json:"_raw"`
}

type RemitAdjustment struct {
	Line       *int64          `json:"line"`
	GroupCode  *string         `json:"groupCode"`
	ReasonCode *string         `json:"reasonCode"`
	Amount     *model.Money    `json:"amount"`
	Raw        json.RawMessage `json:"_raw"`
}

type EOBLine struct {
	ID            string          `json:"id"`
	ChargeID      *string         `json:"chargeId"`
	ProcedureCode *string         `json:"procedureCode"`
	Billed        *model.Money    `json:"billed"`
	Allowed       *model.Money    `json:"allowed"`
	Paid          *model.Money    `json:"paid"`
	Deductible    *model.Money    `json:"deductible"`
	Coinsurance   *model.Money    `json:"coinsurance"`
	Copay         *model.Money    `json:"copay"`
	Date          *string         `json:"date"`
	Raw           json.RawMessage `json:"_raw"`
}

type Payment struct {
	ID       string          `json:"id"`
	ChargeID *string         `json:"chargeId"`
	Amount   *model.Money    `json:"amount"`
	PostDate *string         `json:"postDate"`
	Source   *string         `json:"source"`
	Payer    *string         `json:"payer"`
	Raw      json.RawMessage `json:"_raw"`
}

type CollectionEvent struct {
	ID              string          `json:"id"`
	VisitNumber     *string         `json:"visitNumber"`
	EncounterID     *string         `json:"encounterId"`
	WorkflowType    *string         `json:"workflowType"`
	Date            *string         `json:"date"`
	AmountDue       *model.Money    `json:"amountDue"`
	AmountCollected *model.Money    `json:"amountCollected"`
	Raw             json.RawMessage `json:"_raw"`
}

type Account struct {
	ID      string          `json:"id"`
	Name    *string         `json:"name"`
	Type    *string         `json:"type"`
	Balance *model.Money    `json:"balance"`
	Raw     json.RawMessage `json:"_raw"`
}

type BillingVisit struct {
	ID          string          `json:"id"`
	EncounterID *string         `json:"encounterId"`
	Raw         json.RawMessage `json:"_raw"`
}
