package projection

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/model"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func loadGraph(t *testing.T) *graph.Graph {
	t.Helper()
	f, err := os.Open("../../testdata/patient_export.json")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	g, err := graph.HydrateJSON(f, map[string]string{"V1": "1001"})
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return g
}

func marshal(t *testing.T, doc *Document) []byte {
	t.Helper()
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestProject_Header(t *testing.T) {
	doc := Project(loadGraph(t), Options{Now: fixedNow})
	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "epic-ehi-export", doc.Source)
	assert.Equal(t, "2024-05-01T12:30:00Z", doc.ProjectedAt)

	present := make(map[string]bool)
	for _, c := range doc.Capabilities {
		present[c.Collection] = c.Present
	}
	assert.True(t, present["transactions"])
	assert.True(t, present["history"])
	assert.False(t, present["notes"], "unknown key never reported")
}

func TestProject_Deterministic(t *testing.T) {
	g := loadGraph(t)
	a := marshal(t, Project(g, Options{Now: fixedNow}))
	b := marshal(t, Project(g, Options{Now: fixedNow}))
	if !bytes.Equal(a, b) {
		t.Fatal("same graph and timestamp produced different bytes")
	}

	c := marshal(t, Project(g, Options{Now: fixedNow.Add(time.Hour)}))
	aLines := strings.Split(string(a), "\n")
	cLines := strings.Split(string(c), "\n")
	require.Equal(t, len(aLines), len(cLines))
	var diffs []string
	for i := range aLines {
		if aLines[i] != cLines[i] {
			diffs = append(diffs, strings.TrimSpace(cLines[i]))
		}
	}
	require.Len(t, diffs, 1)
	assert.True(t, strings.HasPrefix(diffs[0], `"projectedAt"`), diffs[0])
}

func TestProject_FixtureConforms(t *testing.T) {
	data := marshal(t, Project(loadGraph(t), Options{Now: fixedNow}))
	for _, v := range Validate(data) {
		t.Errorf("violation: %s", v)
	}

	// Re-parse and re-serialize: the round trip must stay conformant and stable.
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	again := marshal(t, &doc)
	assert.Empty(t, Validate(again))
	assert.JSONEq(t, string(data), string(again))
}

func TestProject_EmptyGraphConforms(t *testing.T) {
	g, err := graph.Hydrate(model.Row{}, nil)
	require.NoError(t, err)
	doc := Project(g, Options{Now: fixedNow})
	data := marshal(t, doc)

	assert.Empty(t, Validate(data))
	assert.Contains(t, string(data), `"encounters": []`)
	assert.Contains(t, string(data), `"charges": []`)
	assert.Contains(t, string(data), `"name": null`)
	assert.NotContains(t, string(data), `"encounters": null`)
}

func TestProject_Charges(t *testing.T) {
	doc := Project(loadGraph(t), Options{Now: fixedNow})
	byID := make(map[string]Charge)
	for _, c := range doc.Billing.Charges {
		byID[c.ID] = c
	}

	voided := byID["9002"]
	assert.True(t, voided.Voided)
	assert.Equal(t, model.Money(15000), *voided.Amount, "original amount retained")
	assert.Equal(t, model.Money(0), *voided.OutstandingAmount)
	assert.Equal(t, "9003", *voided.ReplacementChargeID)
	assert.Equal(t, "2023-02-20", *voided.VoidDate)
	assert.Equal(t, "1002", *voided.EncounterID)

	repl := byID["9003"]
	assert.Equal(t, "9002", *repl.OriginalChargeID)
	assert.Nil(t, repl.ReplacementChargeID)

	paid := byID["9001"]
	assert.Equal(t, model.Money(-33000), paid.MatchedTotal)
	assert.True(t, paid.Balanced)
	assert.Equal(t, "1001", *paid.EncounterID)
	assert.JSONEq(t, `{"TX_TYPE_C_NAME":"Charge"}`, string(paid.Raw))

	unmapped := byID["9004"]
	assert.Equal(t, "777", *unmapped.EncounterID)
}

func TestProject_DateFormats(t *testing.T) {
	doc := Project(loadGraph(t), Options{Now: fixedNow})
	assert.Equal(t, "1980-03-14", *doc.Patient.BirthDate)
	assert.Equal(t, "2023-01-10", *doc.Encounters[0].Date)
	assert.Equal(t, "2023-01-10T09:15:00", *doc.Encounters[0].Orders[0].OrderedAt)
	assert.Equal(t, "2023-01-11T08:30:00", *doc.Messages[0].SentAt)
}

func TestProject_MoneySerialization(t *testing.T) {
	doc := Project(loadGraph(t), Options{Now: fixedNow})
	data := marshal(t, doc)
	assert.Contains(t, string(data), `"amount": 330.00`)
	assert.Contains(t, string(data), `"chargedAmount": -106.58`)
}
