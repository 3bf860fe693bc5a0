package pipeline

import (
	"strings"

	"bggsync/internal"
	"bggsync/internal/reference"
)

const (
	currencyUSD       = "USD"
	affiliateTracking = "utm_source=boardgamegeek&utm_medium=referral&utm_campaign=buy_a_copy"
)

type Reconciliation struct {
	Matched []internal.MatchedRow
	Failed  []internal.FailedRow
}

// Reconcile partitions the (possibly freshly mutated) catalog: a product is
// matched only when it carries an assignment that the canonical universe
// validates. A stale or malformed id from a previous run fails validation
// and lands in the failed table with the assignment preserved for
// diagnostics. Every product ends up in exactly one of the two tables.
func Reconcile(products []internal.Product, universe reference.Universe, affiliateBase string) Reconciliation {
	rec := Reconciliation{}

	for _, p := range products {
		if p.ExternalID != nil && universe.Contains(*p.ExternalID) {
			enabled := 0
			if p.TotalInventory > 0 {
				enabled = 1
			}
			rec.Matched = append(rec.Matched, internal.MatchedRow{
				GameID:   *p.ExternalID,
				URL:      AffiliateURL(affiliateBase, p.Handle),
				Price:    p.Price,
				Currency: currencyUSD,
				Enabled:  enabled,
				ShowFrom: 1,
			})
			continue
		}

		rec.Failed = append(rec.Failed, internal.FailedRow{
			ProductID:  p.ID,
			Handle:     p.Handle,
			Barcode:    p.Barcode,
			ExternalID: p.ExternalID,
			Price:      p.Price,
		})
	}

	return rec
}

func AffiliateURL(base, handle string) string {
	return strings.TrimRight(base, "/") + "/" + handle + "?" + affiliateTracking
}
