// Package lifecycle holds process-scoped state and the cancellation scopes that
// bind in-flight work to the flow that started it.
package lifecycle

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/logging"
)

// Speaker plays spoken guidance.
type Speaker interface {
	Speak(text string)
	Stop()
}

// AppState owns the foreground flag and the one-time initialization flag.
// SetForeground is the only writer of the foreground flag.
type AppState struct {
	speaker Speaker
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	initialized bool
	foreground  bool
}

// NewAppState starts in the foreground and uninitialized. speaker may be nil.
func NewAppState(speaker Speaker, logger *zap.Logger) *AppState {
	ctx, cancel := context.WithCancel(context.Background())
	return &AppState{
		speaker:    speaker,
		logger:     logging.OrNop(logger).Named("app_state"),
		ctx:        ctx,
		cancel:     cancel,
		foreground: true,
	}
}

// Init runs setup once. Later calls return nil without running it. A failed
// setup leaves the state uninitialized so announcements stay muted.
func (a *AppState) Init(setup func(ctx context.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}
	if setup != nil {
		if err := setup(a.ctx); err != nil {
			a.logger.Warn("initialization failed", zap.Error(err))
			return err
		}
	}
	a.initialized = true
	return nil
}

// Initialized reports whether Init completed.
func (a *AppState) Initialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// SetForeground records the OS foreground signal. Going to the background stops speech.
func (a *AppState) SetForeground(active bool) {
	a.mu.Lock()
	changed := a.foreground != active
	a.foreground = active
	a.mu.Unlock()

	if changed {
		a.logger.Debug("foreground changed", zap.Bool("foreground", active))
	}
	if !active && a.speaker != nil {
		a.speaker.Stop()
	}
}

func (a *AppState) Foreground() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.foreground
}

// Announce speaks text when initialized and in the foreground. It reports whether it spoke.
func (a *AppState) Announce(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || a.speaker == nil {
		return false
	}
	a.mu.RLock()
	ready := a.initialized && a.foreground
	a.mu.RUnlock()
	if !ready {
		return false
	}
	a.speaker.Stop()
	a.speaker.Speak(text)
	return true
}

// Context is cancelled by Shutdown. Scopes derive from it.
func (a *AppState) Context() context.Context { return a.ctx }

// Shutdown cancels every scope derived from the state and silences speech.
func (a *AppState) Shutdown() {
	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()

	a.cancel()
	if a.speaker != nil {
		a.speaker.Stop()
	}
	a.logger.Info("shutdown")
}
