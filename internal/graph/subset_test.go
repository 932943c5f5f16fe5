package graph

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ehiledger/internal/model"
)

func loadDocument(t *testing.T) model.Row {
	t.Helper()
	f, err := os.Open(fixturePath)
	require.NoError(t, err)
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var doc map[string]any
	require.NoError(t, dec.Decode(&doc))
	return model.Row(doc)
}

func TestSubset_SingleEncounter(t *testing.T) {
	doc := loadDocument(t)
	vm := map[string]string{"V1": "1001"}
	g, err := Hydrate(doc, vm)
	require.NoError(t, err)

	sub := Subset(doc, g, []string{"1002"})
	b, ok := sub.Object(model.KeyBilling)
	require.True(t, ok)

	assert.Len(t, sub.Rows("encounters"), 1)
	assert.Len(t, sub.Rows("medications"), 1, "unlinked medication kept")
	assert.Len(t, sub.Rows("messages"), 0)
	assert.Len(t, sub.Rows("immunizations"), 1)
	assert.Len(t, b.Rows("transactions"), 2)
	assert.Len(t, b.Rows("actions"), 3, "orphan action dropped")
	assert.Len(t, b.Rows("invoices"), 1)
	assert.Len(t, b.Rows("claims"), 0)
	assert.Len(t, b.Rows("remittances"), 0)
	assert.Len(t, b.Rows("eobLines"), 0)
	assert.Len(t, b.Rows("collectionEvents"), 1)
	assert.Len(t, b.Rows("visits"), 1)
	assert.Len(t, b.Rows("accounts"), 1, "accounts kept whole")

	// The source document is untouched.
	assert.Len(t, doc.Rows("encounters"), 4)

	sg, err := Hydrate(sub, vm)
	require.NoError(t, err)
	charges := sg.Index().ChargesForEncounter("1002")
	require.Len(t, charges, 2)
	assert.Len(t, sg.Index().ActionsForCharge("9003"), 2)
	assert.Equal(t, "9003", charges[0].Replacement(sg).ID)
}

func TestSubset_FullSelectionKeepsBilling(t *testing.T) {
	doc := loadDocument(t)
	g, err := Hydrate(doc, map[string]string{"V1": "1001"})
	require.NoError(t, err)

	var ids []string
	for _, e := range g.Encounters {
		ids = append(ids, e.ID)
	}
	sub := Subset(doc, g, ids)
	b, _ := sub.Object(model.KeyBilling)
	ob, _ := doc.Object(model.KeyBilling)
	for _, key := range []string{"transactions", "invoices", "claims", "remittances", "reconciliations", "eobLines", "payments", "collectionEvents"} {
		assert.Len(t, b.Rows(key), len(ob.Rows(key)), key)
	}
	assert.Len(t, b.Rows("actions"), 3, "only the orphan action is unreachable")
}

func TestSubset_MissingCollectionsStayMissing(t *testing.T) {
	doc := model.Row{"patient": map[string]any{"PAT_ID": "Z1"}}
	g, err := Hydrate(doc, nil)
	require.NoError(t, err)
	sub := Subset(doc, g, nil)
	assert.False(t, sub.Has("encounters"))
	assert.False(t, sub.Has(model.KeyBilling))
}
