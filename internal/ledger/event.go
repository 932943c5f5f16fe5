package ledger

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

// Event families.
const (
	FamilyVisit          = "visit"
	FamilyCollection     = "collection"
	FamilyCharge         = "charge"
	FamilyInvoice        = "invoice"
	FamilyClaim          = "claim"
	FamilyReconciliation = "reconciliation"
	FamilyRemittance     = "remittance"
	FamilyAction         = "action"
	FamilyEOB            = "eob"
	FamilyPayment        = "payment"
)

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/gyeh/ehiledger/timeline-event"))

// Event is one entry of a visit timeline.
type Event struct {
	ID          string       `json:"id"`
	Date        *string      `json:"date"`
	OrderKey    float64      `json:"orderKey"`
	Family      string       `json:"family"`
	Label       string       `json:"label"`
	Detail      *string      `json:"detail"`
	Amount      *model.Money `json:"amount"`
	AmountLabel *string      `json:"amountLabel"`
	Dim         bool         `json:"dim"`
	SourceID    *string      `json:"sourceId"`

	day *time.Time
}

// newEvent builds an event with a deterministic id derived from the source
// record and the event's ordinal within it.
func newEvent(family, sourceID string, ordinal int, at *time.Time, label string) Event {
	name := family + "|" + sourceID + "|" + strconv.Itoa(ordinal)
	src := sourceID
	var day *time.Time
	if at != nil {
		d := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		day = &d
	}
	return Event{
		ID:       uuid.NewSHA1(eventNamespace, []byte(name)).String(),
		Date:     normalize.FormatDate(at),
		Family:   family,
		Label:    label,
		SourceID: &src,
		day:      day,
	}
}

func (e Event) withDetail(s string) Event {
	if s != "" {
		e.Detail = &s
	}
	return e
}

func (e Event) withAmount(m *model.Money, label string) Event {
	if m == nil {
		return e
	}
	v := *m
	e.Amount = &v
	if label != "" {
		e.AmountLabel = &label
	}
	return e
}

// sortEvents orders events by calendar date, undated first, then by order
// key. Ties keep insertion order.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return eventLess(events[i], events[j]) })
}

func eventLess(a, b Event) bool {
	switch {
	case a.day == nil && b.day != nil:
		return true
	case a.day != nil && b.day == nil:
		return false
	case a.day != nil && !a.day.Equal(*b.day):
		return a.day.Before(*b.day)
	}
	return a.OrderKey < b.OrderKey
}
