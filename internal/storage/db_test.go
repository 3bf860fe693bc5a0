package storage

import (
	"path/filepath"
	"testing"

	"bggsync/internal"
	"bggsync/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertRunAndMutationLog(t *testing.T) {
	db := openTestDB(t)

	counts := internal.RunCounts{Fetched: 3, Skipped: 1, Assigned: 1, Tagged: 1, Matched: 2, Failed: 1}
	runID, err := db.InsertRun("trace-1", true, map[string]float64{"totalMs": 120}, counts)
	if err != nil {
		t.Fatal(err)
	}

	outcomes := []internal.MutationOutcome{
		{ProductID: "p2", Action: internal.ActionAssign, Status: internal.MutationOK, ObjectID: util.StringPtr("200")},
		{ProductID: "p3", Action: internal.ActionFlag, Status: internal.MutationFailed, Ambiguous: []string{"a", "b"}, Error: util.StringPtr("boom")},
	}
	if err := db.InsertMutationOutcomes(runID, outcomes); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs=%d", len(runs))
	}
	if !runs[0].DryRun || runs[0].Counts != counts {
		t.Fatalf("unexpected run row: %+v", runs[0])
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetMetadata("last_run", "2026-09-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("last_run", "2026-09-02T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	value, err := db.GetMetadata("last_run")
	if err != nil {
		t.Fatal(err)
	}
	if value == nil || *value != "2026-09-02T00:00:00Z" {
		t.Fatalf("metadata value: %v", value)
	}

	missing, err := db.GetMetadata("unset")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("expected nil for unset key")
	}
}
