package graph

import (
	"sort"

	"github.com/gyeh/ehiledger/internal/model"
)

// Capabilities records which sections and collections were present in the
// source document. It is computed once during hydration so readers check a
// flag instead of probing for data.
type Capabilities map[string]bool

// Has reports whether the named collection key was present.
func (c Capabilities) Has(key string) bool {
	return c[key]
}

// Billing reports whether the document carried a usable charge ledger.
func (c Capabilities) Billing() bool {
	return c.Has(model.KeyBilling) && c.Has("transactions")
}

// Missing returns the known collection keys that were absent, in canonical order.
func (c Capabilities) Missing() []string {
	var out []string
	for _, key := range model.CollectionKeys() {
		if !c[key] {
			out = append(out, key)
		}
	}
	return out
}

// Keys returns every recorded key in sorted order.
func (c Capabilities) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
