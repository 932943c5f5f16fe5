package graph

import (
	"time"

	"github.com/gyeh/ehiledger/internal/model"
)

// Patient holds demographics. A document without a patient section hydrates
// to a Patient with every field nil.
type Patient struct {
	ID        string
	Name      *string
	MRN       *string
	BirthDate *time.Time
	Sex       *string
	City      *string
	State     *string
	Raw       model.Row
}

// Encounter is one clinical contact, identified by its CSN.
type Encounter struct {
	ID         string
	Date       *time.Time
	Type       *string
	Department *string
	Provider   *string
	Reason     *string
	Orders     []*Order
	Diagnoses  []*Diagnosis
	Notes      []*Note
	Raw        model.Row
}

// Order is a procedure or lab order placed during an encounter.
type Order struct {
	ID            string
	EncounterID   *string
	Description   *string
	ProcedureCode *string
	Status        *string
	OrderedAt     *time.Time
	Results       []*Result
	Raw           model.Row
}

// Result is one component value reported against an order.
type Result struct {
	ID        string
	Line      *int64
	Component *string
	Value     *string
	Unit      *string
	Flag      *string
	ResultAt  *time.Time
	Raw       model.Row
}

// Diagnosis is a coded diagnosis attached to an encounter.
type Diagnosis struct {
	ID      string
	Line    *int64
	Name    *string
	Code    *string
	Primary bool
	Raw     model.Row
}

// Note is a clinical note written during an encounter.
type Note struct {
	ID        string
	Type      *string
	Author    *string
	CreatedAt *time.Time
	Text      *string
	Raw       model.Row
}

// Allergy is a recorded allergy. RecordedCSN is the provenance stamp of the
// contact that recorded it.
type Allergy struct {
	ID          string
	Allergen    *string
	Reaction    *string
	Severity    *string
	Status      *string
	NotedDate   *time.Time
	RecordedCSN *string
	Raw         model.Row
}

// Problem is a problem list entry.
type Problem struct {
	ID           string
	Name         *string
	Code         *string
	Status       *string
	NotedDate    *time.Time
	ResolvedDate *time.Time
	RecordedCSN  *string
	Raw          model.Row
}

// Medication is a medication order.
type Medication struct {
	ID          string
	Name        *string
	Sig         *string
	Route       *string
	Status      *string
	StartDate   *time.Time
	EndDate     *time.Time
	EncounterID *string
	Raw         model.Row
}

// Immunization is an administered vaccine.
type Immunization struct {
	ID          string
	Name        *string
	Dose        *string
	Date        *time.Time
	EncounterID *string
	Raw         model.Row
}

// Message is a patient portal message. It may reference the encounter and
// the order it concerns.
type Message struct {
	ID          string
	Subject     *string
	Type        *string
	Body        *string
	SentAt      *time.Time
	EncounterID *string
	OrderID     *string
	Raw         model.Row
}

// Coverage is one insurance coverage on file.
type Coverage struct {
	ID            string
	Payer         *string
	Plan          *string
	MemberID      *string
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	Raw           model.Row
}
