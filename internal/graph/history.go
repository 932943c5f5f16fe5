package graph

import (
	"sort"
	"time"

	"github.com/gyeh/ehiledger/internal/model"
)

// History kinds, matching the keys of the "history" section.
const (
	HistorySocial   = "social"
	HistorySurgical = "surgical"
	HistoryFamily   = "family"
)

// HistoryKinds lists the history sections in canonical order.
var HistoryKinds = []string{HistorySocial, HistorySurgical, HistoryFamily}

// Snapshot is a point-in-time copy of one history section. ContactCSN is the
// contact that produced the snapshot; ReviewedCSN is the encounter during
// which it was last reviewed, when that differs.
type Snapshot struct {
	ID          string
	Kind        string
	Date        *time.Time
	ContactCSN  *string
	ReviewedCSN *string
	Items       []*HistoryItem
	Raw         model.Row
}

// HistoryItem is one line of a history snapshot.
type HistoryItem struct {
	Line   *int64
	Name   *string
	Value  *string
	Date   *time.Time
	Detail *string
	Raw    model.Row
}

// Timeline orders the snapshots of one history section. Undated snapshots
// sort first; ties keep source order.
type Timeline struct {
	snapshots []*Snapshot
}

// NewTimeline sorts snapshots into a Timeline.
func NewTimeline(snapshots []*Snapshot) *Timeline {
	sorted := make([]*Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Date, sorted[j].Date
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	return &Timeline{snapshots: sorted}
}

// Snapshots returns the ordered snapshots. The slice must not be modified.
func (t *Timeline) Snapshots() []*Snapshot {
	if t == nil {
		return nil
	}
	return t.snapshots
}

// Len returns the number of snapshots.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.snapshots)
}

// Latest returns the most recent snapshot, or nil.
func (t *Timeline) Latest() *Snapshot {
	if t.Len() == 0 {
		return nil
	}
	return t.snapshots[len(t.snapshots)-1]
}

// AsOfEncounter returns the snapshot recorded during the encounter, checking
// the contact CSN first and then the reviewed-during CSN.
func (t *Timeline) AsOfEncounter(csn string) *Snapshot {
	for _, s := range t.Snapshots() {
		if s.ContactCSN != nil && *s.ContactCSN == csn {
			return s
		}
	}
	for _, s := range t.Snapshots() {
		if s.ReviewedCSN != nil && *s.ReviewedCSN == csn {
			return s
		}
	}
	return nil
}

// AsOfDate returns the most recent dated snapshot on or before at.
func (t *Timeline) AsOfDate(at time.Time) *Snapshot {
	var found *Snapshot
	for _, s := range t.Snapshots() {
		if s.Date == nil {
			continue
		}
		if s.Date.After(at) {
			break
		}
		found = s
	}
	return found
}
