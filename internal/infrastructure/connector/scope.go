// Package connector provides ERP connector implementations and the transaction
// scope backends they hand to the executor.
package connector

import (
	"sync"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

type scopeState int

const (
	scopeActive scopeState = iota
	scopeCommitted
	scopeRolledBack
)

// scopeGuard enforces the Open -> {Committed | RolledBack} state machine shared
// by all scope backends. Backends call transition before touching their native
// transaction primitive.
type scopeGuard struct {
	mu    sync.Mutex
	state scopeState
}

// transition moves the guard to target if it is still active. The returned
// error names the state that blocked the transition.
func (g *scopeGuard) transition(target scopeState) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case scopeCommitted:
		return erp.ErrScopeAlreadyCommitted
	case scopeRolledBack:
		return erp.ErrScopeAlreadyRolledBack
	}
	g.state = target
	return nil
}

func (g *scopeGuard) is(state scopeState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == state
}
