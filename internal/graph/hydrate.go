package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

// DefaultSource tags graphs whose document carries no source of its own.
const DefaultSource = "ehi-export"

// Option configures Hydrate.
type Option func(*hydrator)

// WithSource overrides the source tag recorded on the graph.
func WithSource(source string) Option {
	return func(h *hydrator) { h.source = source }
}

// WithLogger sets the logger used to report malformed optional data.
func WithLogger(log zerolog.Logger) Option {
	return func(h *hydrator) { h.log = log }
}

type hydrator struct {
	log    zerolog.Logger
	source string
	caps   Capabilities
}

// HydrateJSON decodes a document from r and hydrates it. Numbers are decoded
// as json.Number so amounts keep their exact text.
func HydrateJSON(r io.Reader, visitMap map[string]string, opts ...Option) (*Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedDocument, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, not an object", ErrMalformedDocument, v)
	}
	return Hydrate(model.Row(doc), visitMap, opts...)
}

// Hydrate converts a nested export document into a Graph and builds its
// index. visitMap maps billing visit numbers to encounter CSNs; it may be nil.
//
// Missing collections become empty slices and absent scalars become nil.
// A billing or history section that is not an object is treated as absent.
// Only a missing document is an error.
func Hydrate(doc model.Row, visitMap map[string]string, opts ...Option) (*Graph, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	h := &hydrator{log: zerolog.Nop(), caps: make(Capabilities)}
	for _, opt := range opts {
		opt(h)
	}

	billing := h.section(doc, model.KeyBilling)
	history := h.section(doc, model.KeyHistory)

	g := &Graph{
		Source:        h.sourceTag(doc),
		Patient:       h.patient(doc),
		Encounters:    hydrateRows(h.collection(doc, "encounters"), buildEncounter),
		Allergies:     hydrateRows(h.collection(doc, "allergies"), buildAllergy),
		Problems:      hydrateRows(h.collection(doc, "problems"), buildProblem),
		Medications:   hydrateRows(h.collection(doc, "medications"), buildMedication),
		Immunizations: hydrateRows(h.collection(doc, "immunizations"), buildImmunization),
		Messages:      hydrateRows(h.collection(doc, "messages"), buildMessage),
		Coverage:      hydrateRows(h.collection(doc, "coverage"), buildCoverage),
		History: History{
			Social:   h.timeline(history, HistorySocial),
			Surgical: h.timeline(history, HistorySurgical),
			Family:   h.timeline(history, HistoryFamily),
		},
		Billing:      h.billing(billing),
		Capabilities: h.caps,
	}
	g.visitMap = mergeVisitMap(g.Billing.Visits, visitMap)
	g.index = buildIndex(g)

	h.log.Debug().
		Int("encounters", len(g.Encounters)).
		Int("charges", len(g.Billing.Charges)).
		Int("visit_map", len(g.visitMap)).
		Msg("document hydrated")
	return g, nil
}

// section returns a nested object section and records whether it was
// present. A non-object value is treated as absent.
func (h *hydrator) section(doc model.Row, key string) model.Row {
	if !doc.Has(key) || doc[key] == nil {
		return nil
	}
	obj, ok := doc.Object(key)
	if !ok {
		h.log.Warn().Str("section", key).Msgf("expected object, got %T; treating as empty", doc[key])
		return nil
	}
	h.caps[key] = true
	return obj
}

// collection returns the rows of a named array and records whether it was
// present. A non-array value is treated as absent.
func (h *hydrator) collection(parent model.Row, key string) []model.Row {
	if parent == nil || !parent.Has(key) || parent[key] == nil {
		return nil
	}
	switch parent[key].(type) {
	case []any, []model.Row:
	default:
		h.log.Warn().Str("collection", key).Msgf("expected array, got %T; treating as empty", parent[key])
		return nil
	}
	h.caps[key] = true
	return parent.Rows(key)
}

func (h *hydrator) sourceTag(doc model.Row) string {
	if h.source != "" {
		return h.source
	}
	if s := normalize.Text(doc[model.KeySource]); s != nil {
		return *s
	}
	return DefaultSource
}

func (h *hydrator) patient(doc model.Row) *Patient {
	row, ok := doc.Object(model.KeyPatient)
	if !ok {
		if rows := doc.Rows(model.KeyPatient); len(rows) > 0 {
			row, ok = rows[0], true
		}
	}
	if ok {
		h.caps[model.KeyPatient] = true
	}
	rd := model.NewReader(row)
	p := &Patient{
		ID:        identity(rd, "pat", "PAT_ID", "PAT_MRN_ID"),
		Name:      rd.Str("PAT_NAME", "NAME"),
		MRN:       rd.Str("PAT_MRN_ID", "MRN"),
		BirthDate: rd.Time("BIRTH_DATE"),
		Sex:       rd.Str("SEX_C_NAME", "SEX"),
		City:      rd.Str("CITY"),
		State:     rd.Str("STATE_C_NAME", "STATE"),
	}
	p.Raw = rd.Rest()
	return p
}

func (h *hydrator) timeline(history model.Row, kind string) *Timeline {
	rows := h.collection(history, kind)
	snaps := make([]*Snapshot, 0, len(rows))
	for i, r := range rows {
		snaps = append(snaps, buildSnapshot(kind, model.NewReaderAt(r, i)))
	}
	return NewTimeline(snaps)
}

func (h *hydrator) billing(b model.Row) Billing {
	out := Billing{
		Invoices:         hydrateRows(h.collection(b, "invoices"), buildInvoice),
		Claims:           hydrateRows(h.collection(b, "claims"), buildClaim),
		Remittances:      hydrateRows(h.collection(b, "remittances"), buildRemittance),
		Reconciliations:  hydrateRows(h.collection(b, "reconciliations"), buildReconciliation),
		EOBLines:         hydrateRows(h.collection(b, "eobLines"), buildEOBLine),
		Payments:         hydrateRows(h.collection(b, "payments"), buildPayment),
		CollectionEvents: hydrateRows(h.collection(b, "collectionEvents"), buildCollectionEvent),
		Accounts:         hydrateRows(h.collection(b, "accounts"), buildAccount),
		Visits:           hydrateRows(h.collection(b, "visits"), buildBillingVisit),
	}

	// Actions arrive either as their own collection or nested under the
	// charge they belong to. Both feed one list, first occurrence wins.
	seen := make(map[string]bool)
	addAction := func(a *Action) {
		if seen[a.ID] {
			return
		}
		seen[a.ID] = true
		out.Actions = append(out.Actions, a)
	}

	txRows := h.collection(b, "transactions")
	out.Charges = make([]*Charge, 0, len(txRows))
	for i, r := range txRows {
		c, nested := buildCharge(model.NewReaderAt(r, i))
		out.Charges = append(out.Charges, c)
		for j, ar := range nested {
			addAction(buildAction(model.NewReaderAt(ar, j), &c.ID))
		}
	}
	for i, r := range h.collection(b, "actions") {
		addAction(buildAction(model.NewReaderAt(r, i), nil))
	}
	if out.Actions == nil {
		out.Actions = []*Action{}
	}
	return out
}

// mergeVisitMap layers the explicit mapping over the billing visit rows.
func mergeVisitMap(visits []*BillingVisit, explicit map[string]string) map[string]string {
	m := make(map[string]string, len(visits)+len(explicit))
	for _, v := range visits {
		if v.EncounterID != nil {
			m[v.ID] = *v.EncounterID
		}
	}
	for k, v := range explicit {
		m[k] = v
	}
	return m
}

// ReadVisitMap decodes a flat JSON object of visit number to CSN. Numeric
// keys and values are accepted.
func ReadVisitMap(r io.Reader) (map[string]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode visit map: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := normalize.ID(k)
		val := normalize.ID(v)
		if key == nil || val == nil {
			continue
		}
		out[*key] = *val
	}
	return out, nil
}

func hydrateRows[T any](rows []model.Row, build func(*model.Reader) *T) []*T {
	out := make([]*T, 0, len(rows))
	for i, r := range rows {
		out = append(out, build(model.NewReaderAt(r, i)))
	}
	return out
}

// identity reads the first present id column, or derives a synthetic id from
// the row's scalar content and its position in the collection.
func identity(rd *model.Reader, prefix string, cols ...string) string {
	if id := rd.ID(cols...); id != nil {
		return *id
	}
	return syntheticID(rd, prefix)
}

// syntheticID hashes the row with its position, so identical rows in one
// collection stay distinct.
func syntheticID(rd *model.Reader, prefix string) string {
	fields := rd.Row().Scalars()
	fields["#position"] = strconv.Itoa(rd.Position())
	return normalize.SyntheticID(prefix, fields)
}

// lineID builds a child identity from its parent id and line number.
func lineID(rd *model.Reader, prefix string, parent *string, line *int64) string {
	if parent != nil && line != nil {
		return *parent + ":" + strconv.FormatInt(*line, 10)
	}
	return syntheticID(rd, prefix)
}

func orDefault(v *string, fallback *string) *string {
	if v != nil {
		return v
	}
	return fallback
}
