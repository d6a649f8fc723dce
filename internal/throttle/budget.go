// Package throttle holds the per-minute capacity accounting used to pace
// dispatch against a remote service's quotas.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CapacityBudget tracks two leaky buckets: request slots and cost units.
//
// Both refill continuously at max/minute and are capped at max. Time is
// supplied by the caller through Refill, so the budget never reads the wall
// clock itself and never moves backwards.
type CapacityBudget struct {
	mu sync.Mutex

	slots *rate.Limiter
	cost  *rate.Limiter

	maxCost int
	now     time.Time
}

// NewCapacityBudget creates a full budget allowing maxRequests calls and
// maxCost cost units per minute.
func NewCapacityBudget(maxRequests, maxCost int) *CapacityBudget {
	return &CapacityBudget{
		slots:   rate.NewLimiter(perMinute(maxRequests), maxRequests),
		cost:    rate.NewLimiter(perMinute(maxCost), maxCost),
		maxCost: maxCost,
	}
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / time.Minute.Seconds())
}

// Refill advances the budget to now. Capacity accrues in proportion to the
// time elapsed since the previous refill, whatever the caller's loop cadence.
func (b *CapacityBudget) Refill(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.After(b.now) {
		b.now = now
	}
}

// TryReserve takes one slot and cost units from the budget if both are
// available at the last refill instant. Otherwise it changes nothing.
func (b *CapacityBudget) TryReserve(cost int) bool {
	if !b.CanEverReserve(cost) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots.TokensAt(b.now) < 1 || b.cost.TokensAt(b.now) < float64(cost) {
		return false
	}

	// Both checks passed under the lock, so neither AllowN can fail.
	b.slots.AllowN(b.now, 1)
	b.cost.AllowN(b.now, cost)
	return true
}

// CanEverReserve reports whether a request of this cost fits the budget at all.
func (b *CapacityBudget) CanEverReserve(cost int) bool {
	return cost >= 0 && cost <= b.maxCost
}

// Available returns the slots and cost units available at the last refill.
func (b *CapacityBudget) Available() (slots, cost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.slots.TokensAt(b.now), b.cost.TokensAt(b.now)
}
