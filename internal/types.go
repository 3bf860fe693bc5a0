package internal

type IdentifierKind string

const (
	KindUPC  IdentifierKind = "upc"
	KindGTIN IdentifierKind = "gtin"
	KindISBN IdentifierKind = "isbn"
)

// Product is one catalog item as shaped from the paginated products query.
// ExternalID carries the bgg_game_id metafield value when the product already
// has an assignment; the dispatcher fills it in after a successful mutation.
type Product struct {
	ID             string
	Handle         string
	TotalInventory int
	Price          float64
	Barcode        *string
	ExternalID     *string
}

type MatchDecision struct {
	ObjectID  string
	Ambiguous []string
}

func (d MatchDecision) Matched() bool {
	return d.ObjectID != ""
}

type MutationAction string

type MutationStatus string

const (
	ActionAssign MutationAction = "ASSIGN"
	ActionFlag   MutationAction = "FLAG"

	MutationOK     MutationStatus = "OK"
	MutationDryRun MutationStatus = "DRY_RUN"
	MutationFailed MutationStatus = "FAILED"
)

// MutationOutcome is the per-product dispatch record kept for diagnostics.
type MutationOutcome struct {
	ProductID string
	Action    MutationAction
	Status    MutationStatus
	ObjectID  *string
	Ambiguous []string
	Error     *string
}

type MatchedRow struct {
	GameID   string
	URL      string
	Price    float64
	Currency string
	Enabled  int
	ShowFrom int
}

type FailedRow struct {
	ProductID  string
	Handle     string
	Barcode    *string
	ExternalID *string
	Price      float64
}

type RunCounts struct {
	Fetched  int
	Skipped  int
	Assigned int
	Tagged   int
	Matched  int
	Failed   int
}
