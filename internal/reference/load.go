package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"bggsync/internal"
	"bggsync/internal/config"
)

// LoadIdentifierIndexes builds the UPC/GTIN/ISBN indexes from the exported
// identifier datasets. The three loads are independent and run concurrently.
func LoadIdentifierIndexes(cfg config.Config) (*IndexSet, error) {
	set := &IndexSet{}

	var g errgroup.Group
	g.Go(func() error {
		idx, err := LoadIdentifierIndex(cfg.IdentifierDatasetPath("upc"), internal.KindUPC)
		set.UPC = idx
		return err
	})
	g.Go(func() error {
		idx, err := LoadIdentifierIndex(cfg.IdentifierDatasetPath("gtin"), internal.KindGTIN)
		set.GTIN = idx
		return err
	})
	g.Go(func() error {
		idx, err := LoadIdentifierIndex(cfg.IdentifierDatasetPath("isbn"), internal.KindISBN)
		set.ISBN = idx
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadIdentifierIndex reads a two-column CSV (objectid, identifier) into an
// Index. Unusable rows are dropped, not errors; an unreadable file is fatal.
func LoadIdentifierIndex(path string, kind internal.IdentifierKind) (*Index, error) {
	rows, err := readTwoColumnCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load %s dataset: %w", kind, err)
	}
	return BuildIndex(kind, rows), nil
}

// LoadUniverse unions the object ids of the primary and RPG exports.
func LoadUniverse(primaryPath, rpgPath string) (Universe, error) {
	universe := Universe{}
	for _, path := range []string{primaryPath, rpgPath} {
		rows, err := readTwoColumnCSV(path)
		if err != nil {
			return nil, fmt.Errorf("load canonical dataset: %w", err)
		}
		for _, row := range rows {
			objectID := strings.TrimSpace(row.ObjectID)
			if objectID == "" {
				continue
			}
			universe[objectID] = struct{}{}
		}
	}
	return universe, nil
}

func readTwoColumnCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var out []Row
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		// The BGG exports carry a header line; data files without one lose
		// nothing since "objectid" never normalizes to a barcode.
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "objectid") {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}
		out = append(out, Row{ObjectID: record[0], Identifier: record[1]})
	}
	return out, nil
}
