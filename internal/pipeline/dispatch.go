package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"bggsync/internal"
	"bggsync/internal/config"
	"bggsync/internal/util"
)

// Mutator is the commerce-platform mutation surface the dispatcher drives.
type Mutator interface {
	SetExternalID(ctx context.Context, productID, objectID string) error
	FlagManualReview(ctx context.Context, productID string) error
}

type Dispatcher struct {
	cfg     config.Config
	matcher *Matcher
	mutator Mutator
}

type DispatchResult struct {
	Products []internal.Product
	Outcomes []internal.MutationOutcome
	Skipped  int
	Assigned int
	Tagged   int
}

func NewDispatcher(cfg config.Config, matcher *Matcher, mutator Mutator) *Dispatcher {
	return &Dispatcher{cfg: cfg, matcher: matcher, mutator: mutator}
}

// Dispatch decides and executes one mutation per unassigned product: a unique
// barcode match assigns the object id metafield, anything else gets the
// manual-review tag. At most cfg.MutationConcurrency mutations are in flight
// at once, and all are awaited before returning. Products that already carry
// an assignment cost nothing.
//
// The input slice is not mutated; the returned copy reflects fresh
// assignments so reconciliation sees them without re-fetching. Per-product
// failures are logged and isolated — only context cancellation aborts.
func (d *Dispatcher) Dispatch(ctx context.Context, products []internal.Product) (DispatchResult, error) {
	out := make([]internal.Product, len(products))
	copy(out, products)
	outcomes := make([]internal.MutationOutcome, len(out))
	dispatched := make([]bool, len(out))

	limit := int64(d.cfg.MutationConcurrency)
	sem := semaphore.NewWeighted(limit)

	skipped := 0
	for i := range out {
		if out[i].ExternalID != nil {
			skipped++
			continue
		}

		decision := d.matcher.Resolve(out[i].Barcode)
		if err := sem.Acquire(ctx, 1); err != nil {
			return DispatchResult{}, err
		}
		dispatched[i] = true
		go func(i int, decision internal.MatchDecision) {
			defer sem.Release(1)
			outcomes[i] = d.execute(ctx, &out[i], decision)
		}(i, decision)
	}

	// Drain the semaphore: returns only once every mutation has finished.
	if err := sem.Acquire(ctx, limit); err != nil {
		return DispatchResult{}, err
	}
	sem.Release(limit)

	result := DispatchResult{Products: out, Skipped: skipped}
	for i, outcome := range outcomes {
		if !dispatched[i] {
			continue
		}
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Status == internal.MutationFailed {
			continue
		}
		switch outcome.Action {
		case internal.ActionAssign:
			result.Assigned++
		case internal.ActionFlag:
			result.Tagged++
		}
	}
	return result, nil
}

func (d *Dispatcher) execute(ctx context.Context, p *internal.Product, decision internal.MatchDecision) internal.MutationOutcome {
	if decision.Matched() {
		outcome := internal.MutationOutcome{
			ProductID: p.ID,
			Action:    internal.ActionAssign,
			ObjectID:  util.StringPtr(decision.ObjectID),
		}
		if d.cfg.DryRun {
			fmt.Printf("[DRY_RUN] would set %s.%s=%s on %s\n", d.cfg.MetafieldNS, d.cfg.MetafieldKey, decision.ObjectID, p.ID)
			outcome.Status = internal.MutationDryRun
			p.ExternalID = util.StringPtr(decision.ObjectID)
			return outcome
		}
		if err := d.mutator.SetExternalID(ctx, p.ID, decision.ObjectID); err != nil {
			fmt.Printf("assign failed product=%s object=%s: %v\n", p.ID, decision.ObjectID, err)
			outcome.Status = internal.MutationFailed
			outcome.Error = util.StringPtr(err.Error())
			return outcome
		}
		outcome.Status = internal.MutationOK
		p.ExternalID = util.StringPtr(decision.ObjectID)
		return outcome
	}

	outcome := internal.MutationOutcome{
		ProductID: p.ID,
		Action:    internal.ActionFlag,
		Ambiguous: decision.Ambiguous,
	}
	if d.cfg.DryRun {
		fmt.Printf("[DRY_RUN] would tag product %s %s\n", p.ID, d.cfg.ManualReviewTag)
		outcome.Status = internal.MutationDryRun
		return outcome
	}
	if err := d.mutator.FlagManualReview(ctx, p.ID); err != nil {
		fmt.Printf("tag failed product=%s: %v\n", p.ID, err)
		outcome.Status = internal.MutationFailed
		outcome.Error = util.StringPtr(err.Error())
		return outcome
	}
	outcome.Status = internal.MutationOK
	return outcome
}
