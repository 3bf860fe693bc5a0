package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bggsync/internal"
	"bggsync/internal/config"
	"bggsync/internal/reference"
)

type fakeMutator struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	assigned    map[string]string
	flagged     map[string]bool
	failFor     map[string]error
	delay       time.Duration
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{assigned: map[string]string{}, flagged: map[string]bool{}, failFor: map[string]error{}}
}

func (f *fakeMutator) begin() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeMutator) end() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeMutator) SetExternalID(_ context.Context, productID, objectID string) error {
	f.begin()
	defer f.end()
	if err := f.failFor[productID]; err != nil {
		return err
	}
	f.mu.Lock()
	f.assigned[productID] = objectID
	f.mu.Unlock()
	return nil
}

func (f *fakeMutator) FlagManualReview(_ context.Context, productID string) error {
	f.begin()
	defer f.end()
	if err := f.failFor[productID]; err != nil {
		return err
	}
	f.mu.Lock()
	f.flagged[productID] = true
	f.mu.Unlock()
	return nil
}

func testDispatcherConfig(concurrency int) config.Config {
	cfg, _ := config.Load()
	cfg.MutationConcurrency = concurrency
	cfg.DryRun = false
	return cfg
}

func TestDispatchSkipsAssignedProducts(t *testing.T) {
	mutator := newFakeMutator()
	matcher := NewMatcher(indexSet(nil, nil, nil))
	d := NewDispatcher(testDispatcherConfig(4), matcher, mutator)

	products := []internal.Product{
		{ID: "p1", Handle: "one", ExternalID: sp("100")},
		{ID: "p2", Handle: "two", ExternalID: sp("200")},
	}

	res, err := d.Dispatch(context.Background(), products)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 2 || len(res.Outcomes) != 0 {
		t.Fatalf("skipped=%d outcomes=%d", res.Skipped, len(res.Outcomes))
	}
	if len(mutator.assigned) != 0 || len(mutator.flagged) != 0 {
		t.Fatal("assigned products must never reach the mutator")
	}
}

func TestDispatchAssignsAndFlags(t *testing.T) {
	mutator := newFakeMutator()
	matcher := NewMatcher(indexSet(
		[]reference.Row{{ObjectID: "200", Identifier: "012345678905"}},
		nil, nil,
	))
	d := NewDispatcher(testDispatcherConfig(4), matcher, mutator)

	products := []internal.Product{
		{ID: "p1", Handle: "matched", Barcode: sp("012345678905")},
		{ID: "p2", Handle: "unmatched", Barcode: sp("999999999999")},
		{ID: "p3", Handle: "barcodeless"},
	}

	res, err := d.Dispatch(context.Background(), products)
	if err != nil {
		t.Fatal(err)
	}

	if mutator.assigned["p1"] != "200" {
		t.Fatalf("p1 not assigned: %v", mutator.assigned)
	}
	if !mutator.flagged["p2"] || !mutator.flagged["p3"] {
		t.Fatalf("unmatched products not flagged: %v", mutator.flagged)
	}
	if res.Assigned != 1 || res.Tagged != 2 {
		t.Fatalf("assigned=%d tagged=%d", res.Assigned, res.Tagged)
	}

	// Return-and-replace: the copy carries the fresh assignment, the input
	// slice stays untouched.
	if res.Products[0].ExternalID == nil || *res.Products[0].ExternalID != "200" {
		t.Fatalf("updated copy missing assignment: %+v", res.Products[0])
	}
	if products[0].ExternalID != nil {
		t.Fatal("input slice was mutated")
	}
}

func TestDispatchConcurrencyBound(t *testing.T) {
	mutator := newFakeMutator()
	mutator.delay = 5 * time.Millisecond
	matcher := NewMatcher(indexSet(nil, nil, nil))
	d := NewDispatcher(testDispatcherConfig(3), matcher, mutator)

	products := make([]internal.Product, 24)
	for i := range products {
		products[i] = internal.Product{ID: fmt.Sprintf("p%d", i), Handle: fmt.Sprintf("h%d", i)}
	}

	if _, err := d.Dispatch(context.Background(), products); err != nil {
		t.Fatal(err)
	}
	if mutator.maxInFlight > 3 {
		t.Fatalf("in-flight mutations peaked at %d, bound is 3", mutator.maxInFlight)
	}
	if len(mutator.flagged) != 24 {
		t.Fatalf("flagged %d of 24", len(mutator.flagged))
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	mutator := newFakeMutator()
	mutator.failFor["p1"] = errors.New("boom")
	matcher := NewMatcher(indexSet(
		[]reference.Row{
			{ObjectID: "200", Identifier: "111"},
			{ObjectID: "300", Identifier: "222"},
		},
		nil, nil,
	))
	d := NewDispatcher(testDispatcherConfig(2), matcher, mutator)

	products := []internal.Product{
		{ID: "p1", Barcode: sp("111")},
		{ID: "p2", Barcode: sp("222")},
	}

	res, err := d.Dispatch(context.Background(), products)
	if err != nil {
		t.Fatal(err)
	}

	if res.Products[0].ExternalID != nil {
		t.Fatal("failed mutation must leave the product in its prior state")
	}
	if res.Products[1].ExternalID == nil || *res.Products[1].ExternalID != "300" {
		t.Fatal("failure on p1 blocked p2")
	}

	var failed *internal.MutationOutcome
	for i := range res.Outcomes {
		if res.Outcomes[i].ProductID == "p1" {
			failed = &res.Outcomes[i]
		}
	}
	if failed == nil || failed.Status != internal.MutationFailed || failed.Error == nil {
		t.Fatalf("failure not recorded: %+v", failed)
	}
}

func TestDispatchDryRun(t *testing.T) {
	mutator := newFakeMutator()
	matcher := NewMatcher(indexSet(
		[]reference.Row{{ObjectID: "200", Identifier: "111"}},
		nil, nil,
	))
	cfg := testDispatcherConfig(2)
	cfg.DryRun = true
	d := NewDispatcher(cfg, matcher, mutator)

	products := []internal.Product{
		{ID: "p1", Barcode: sp("111")},
		{ID: "p2", Barcode: sp("999")},
	}

	res, err := d.Dispatch(context.Background(), products)
	if err != nil {
		t.Fatal(err)
	}

	if len(mutator.assigned) != 0 || len(mutator.flagged) != 0 {
		t.Fatal("dry run must not contact the remote system")
	}
	if res.Assigned != 1 || res.Tagged != 1 {
		t.Fatalf("dry run sequencing: assigned=%d tagged=%d", res.Assigned, res.Tagged)
	}
	if res.Products[0].ExternalID == nil {
		t.Fatal("dry run assignment missing from updated copy")
	}
	for _, outcome := range res.Outcomes {
		if outcome.Status != internal.MutationDryRun {
			t.Fatalf("outcome status %s, want DRY_RUN", outcome.Status)
		}
	}
}
