package pipeline

import (
	"bggsync/internal"
	"bggsync/internal/reference"
	"bggsync/internal/util"
)

type Matcher struct {
	indexes *reference.IndexSet
}

func NewMatcher(indexes *reference.IndexSet) *Matcher {
	return &Matcher{indexes: indexes}
}

// Resolve maps a raw barcode to at most one canonical object id. Indexes are
// consulted in priority order (UPC, GTIN, ISBN); the first index holding any
// entry for the key decides the outcome. An ambiguous entry is a hard stop:
// a barcode shared by several catalog entries at one priority level is not
// resolved by searching lower-priority indexes, it is reported unmatched with
// the candidate set attached for diagnostics.
func (m *Matcher) Resolve(barcode *string) internal.MatchDecision {
	if barcode == nil {
		return internal.MatchDecision{}
	}
	norm := util.NormalizeBarcode(*barcode)
	if norm == "" {
		return internal.MatchDecision{}
	}

	for _, idx := range m.indexes.Ordered() {
		ids := idx.Lookup(norm)
		if len(ids) == 0 {
			continue
		}
		if len(ids) == 1 {
			return internal.MatchDecision{ObjectID: ids[0]}
		}
		return internal.MatchDecision{Ambiguous: append([]string(nil), ids...)}
	}

	return internal.MatchDecision{}
}
