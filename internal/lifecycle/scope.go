package lifecycle

import (
	"context"
	"sync"
)

// Scope ties suspension points to the lifetime of the flow that owns them.
// Closing it cancels every call made with its context.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewScope derives a scope from parent. A nil parent means context.Background.
func NewScope(parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

func (s *Scope) Context() context.Context { return s.ctx }

// Close is idempotent.
func (s *Scope) Close() {
	s.once.Do(s.cancel)
}

// Closed reports whether the scope or its parent ended.
func (s *Scope) Closed() bool {
	return s.ctx.Err() != nil
}
