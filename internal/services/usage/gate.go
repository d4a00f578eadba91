// Package usage implements the client-side advisory quota gate.
package usage

import (
	"context"
	"fmt"

	"github.com/dmelo/outfit-studio/internal/models"
)

// LimitError reports an exhausted free-tier quota. The check is advisory;
// the backend remains the authority and may still reject.
type LimitError struct {
	Remaining int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("no api calls remaining (%d left); upgrade to premium to continue", e.Remaining)
}

// Backend fetches the usage snapshot.
type Backend interface {
	GetUsage(ctx context.Context) (*models.UsageSnapshot, error)
}

// Gate decides whether a transform may proceed.
type Gate struct {
	backend Backend
}

// NewGate creates a gate over the given backend.
func NewGate(backend Backend) *Gate {
	return &Gate{backend: backend}
}

// CheckUsage fetches a fresh snapshot. The result is stale immediately
// after any transform call; callers re-fetch rather than cache.
func (g *Gate) CheckUsage(ctx context.Context) (*models.UsageSnapshot, error) {
	return g.backend.GetUsage(ctx)
}

// Allow applies the decision rule: premium or unlimited always passes,
// otherwise there must be at least one call remaining.
func Allow(snapshot *models.UsageSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("no usage snapshot")
	}
	if snapshot.IsPremium || snapshot.APICallsRemaining.Unlimited {
		return nil
	}
	if snapshot.APICallsRemaining.Count > 0 {
		return nil
	}
	return &LimitError{Remaining: snapshot.APICallsRemaining.Count}
}

// Authorize fetches a snapshot and applies the decision rule in one step.
// Fetch errors propagate: a gate that cannot read the quota must not
// silently wave a paid action through.
func (g *Gate) Authorize(ctx context.Context) error {
	snapshot, err := g.CheckUsage(ctx)
	if err != nil {
		return fmt.Errorf("failed to check usage: %w", err)
	}
	return Allow(snapshot)
}
