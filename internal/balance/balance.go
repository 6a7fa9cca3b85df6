// Package balance supplies the amount read out by the balance step.
package balance

import (
	"context"
	"time"
)

// Balance is the available amount for a caller.
type Balance struct {
	Caller      string
	AmountCents int64
	AsOf        time.Time
}

// Source looks up balances for authenticated callers.
type Source interface {
	Balance(ctx context.Context, caller string) (Balance, error)
}

// Static reports the same configured amount for every caller. It stands in
// until a core banking integration exists.
type Static struct {
	amountCents int64
	now         func() time.Time
}

// NewStatic builds a Source that always reports amountCents.
func NewStatic(amountCents int64) *Static {
	return &Static{amountCents: amountCents, now: time.Now}
}

// Balance returns the configured amount.
func (s *Static) Balance(_ context.Context, caller string) (Balance, error) {
	return Balance{Caller: caller, AmountCents: s.amountCents, AsOf: s.now().UTC()}, nil
}
