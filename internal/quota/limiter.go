package quota

import (
	"context"
	"sync"
	"time"
)

// PlanLimits maps plan names, carried in the JWT role claim, to their
// per-window request budget. -1 means unlimited; a caller with an
// unknown or empty plan falls back to the limiter's default.
var PlanLimits = map[string]int{
	"free":       10,
	"basic":      50,
	"pro":        200,
	"enterprise": -1,
}

// Limiter enforces a fixed-window request budget per caller.
type Limiter struct {
	defaultLimit int
	overrides    map[string]int
	window       time.Duration
	mu           sync.Mutex
	usage        map[string]*windowUsage
}

type windowUsage struct {
	windowStart time.Time
	count       int
}

func NewLimiter(defaultLimit int, overrides map[string]int, window time.Duration) *Limiter {
	if overrides == nil {
		overrides = map[string]int{}
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		defaultLimit: defaultLimit,
		overrides:    overrides,
		window:       window,
		usage:        make(map[string]*windowUsage),
	}
}

// Allow reports whether callerID may proceed under the default limit,
// plus the remaining budget and seconds until the window resets.
func (l *Limiter) Allow(callerID string) (bool, int, int) {
	return l.AllowPlan(callerID, "")
}

// AllowPlan is Allow with a plan name in the budget resolution. A
// per-caller override beats the plan, the plan beats the default.
func (l *Limiter) AllowPlan(callerID, plan string) (bool, int, int) {
	if l == nil || callerID == "" {
		return true, 0, 0
	}
	limit := l.defaultLimit
	if planLimit, ok := PlanLimits[plan]; ok {
		limit = planLimit
	}
	if override, ok := l.overrides[callerID]; ok {
		limit = override
	}
	if limit <= 0 {
		return true, 0, 0
	}

	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.usage[callerID]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		entry = &windowUsage{windowStart: now}
		l.usage[callerID] = entry
	}

	resetSeconds := int(entry.windowStart.Add(l.window).Sub(now).Seconds())
	if resetSeconds < 0 {
		resetSeconds = 0
	}
	if entry.count >= limit {
		return false, 0, resetSeconds
	}
	entry.count++
	return true, limit - entry.count, resetSeconds
}

func (l *Limiter) Cleanup() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for id, entry := range l.usage {
		if now.Sub(entry.windowStart) >= 2*l.window {
			delete(l.usage, id)
		}
	}
}

func (l *Limiter) StartCleanup(ctx context.Context) {
	if l == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(l.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}
