package reference

import (
	"strings"

	"bggsync/internal"
	"bggsync/internal/util"
)

// Row is one line of an identifier dataset: a canonical BGG object id and
// the raw identifier value registered for it.
type Row struct {
	ObjectID   string
	Identifier string
}

// Index maps a normalized identifier to the set of object ids that carry it.
// The same barcode can legitimately appear on several catalog entries, so
// the mapping keeps every registration; ambiguity is resolved by the matcher,
// not hidden here.
type Index struct {
	Kind         internal.IdentifierKind
	byIdentifier map[string][]string
}

func BuildIndex(kind internal.IdentifierKind, rows []Row) *Index {
	idx := &Index{Kind: kind, byIdentifier: map[string][]string{}}
	seen := map[string]map[string]struct{}{}

	for _, row := range rows {
		objectID := strings.TrimSpace(row.ObjectID)
		norm := util.NormalizeBarcode(row.Identifier)
		if objectID == "" || norm == "" {
			continue
		}
		if _, ok := seen[norm]; !ok {
			seen[norm] = map[string]struct{}{}
		}
		if _, dup := seen[norm][objectID]; dup {
			continue
		}
		seen[norm][objectID] = struct{}{}
		idx.byIdentifier[norm] = append(idx.byIdentifier[norm], objectID)
	}

	return idx
}

// Lookup returns every object id registered under an already-normalized
// identifier. A nil result means the index has no entry for the key.
func (idx *Index) Lookup(normalized string) []string {
	return idx.byIdentifier[normalized]
}

func (idx *Index) Len() int {
	return len(idx.byIdentifier)
}

// IndexSet holds the three identifier indexes in business priority order:
// UPC overrides GTIN overrides ISBN.
type IndexSet struct {
	UPC  *Index
	GTIN *Index
	ISBN *Index
}

func (s *IndexSet) Ordered() []*Index {
	return []*Index{s.UPC, s.GTIN, s.ISBN}
}

// Universe is the set of all valid object ids, drawn from the primary and
// RPG reference exports. Validation only; never used for matching.
type Universe map[string]struct{}

func (u Universe) Contains(objectID string) bool {
	_, ok := u[objectID]
	return ok
}
