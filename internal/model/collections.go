package model

// Collection describes one named collection of the export document.
type Collection struct {
	Name    string // e.g. "Charges"
	Key     string // document key, e.g. "transactions"
	Table   string // source table in the relational export, e.g. "ARPB_TRANSACTIONS"
	Billing bool   // lives under the "billing" sub-document
}

// Document keys for the top-level sections.
const (
	KeyPatient = "patient"
	KeyBilling = "billing"
	KeyHistory = "history"
	KeySource  = "source"
)

// AllCollections lists the collections the hydration engine understands, in
// canonical order.
var AllCollections = []Collection{
	{Name: "Encounters", Key: "encounters", Table: "PAT_ENC"},
	{Name: "Allergies", Key: "allergies", Table: "ALLERGY"},
	{Name: "Problems", Key: "problems", Table: "PROBLEM_LIST"},
	{Name: "Medications", Key: "medications", Table: "ORDER_MED"},
	{Name: "Immunizations", Key: "immunizations", Table: "IMMUNE"},
	{Name: "Messages", Key: "messages", Table: "MYC_MESG"},
	{Name: "Coverage", Key: "coverage", Table: "COVERAGE"},
	{Name: "Charges", Key: "transactions", Table: "ARPB_TRANSACTIONS", Billing: true},
	{Name: "Actions", Key: "actions", Table: "ARPB_TX_ACTIONS", Billing: true},
	{Name: "Invoices", Key: "invoices", Table: "INV_BASIC_INFO", Billing: true},
	{Name: "Claims", Key: "claims", Table: "CLM_VALUES", Billing: true},
	{Name: "Remittances", Key: "remittances", Table: "CL_REMIT", Billing: true},
	{Name: "Reconciliations", Key: "reconciliations", Table: "RECONCILE_CLM", Billing: true},
	{Name: "EOB Lines", Key: "eobLines", Table: "PMT_EOB_INFO_I", Billing: true},
	{Name: "Payments", Key: "payments", Table: "ARPB_PAYMENTS", Billing: true},
	{Name: "Collection Events", Key: "collectionEvents", Table: "PAT_COLLECTION_EVENT", Billing: true},
	{Name: "Accounts", Key: "accounts", Table: "ACCOUNT", Billing: true},
	{Name: "Billing Visits", Key: "visits", Table: "ARPB_VISITS", Billing: true},
}

// CollectionKeys returns just the document keys for all collections.
func CollectionKeys() []string {
	keys := make([]string, len(AllCollections))
	for i, c := range AllCollections {
		keys[i] = c.Key
	}
	return keys
}

// CollectionByKey returns the Collection for the given document key, or ok=false.
func CollectionByKey(key string) (Collection, bool) {
	for _, c := range AllCollections {
		if c.Key == key {
			return c, true
		}
	}
	return Collection{}, false
}

// CollectionByTable returns the Collection loaded from the given source table, or ok=false.
func CollectionByTable(table string) (Collection, bool) {
	for _, c := range AllCollections {
		if c.Table == table {
			return c, true
		}
	}
	return Collection{}, false
}
