// Package permission tracks camera authorization and gates every capture on it.
package permission

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/platform"
)

// ErrPermissionDenied blocks capture until the user grants access from OS settings.
var ErrPermissionDenied = errors.New("camera permission denied")

// Status is the normalized camera permission state.
type Status string

const (
	StatusNotDetermined Status = "not-determined"
	StatusRequesting    Status = "requesting"
	StatusAuthorized    Status = "authorized"
	StatusDenied        Status = "denied"
	StatusRestricted    Status = "restricted"
)

// Authorizer is the OS camera permission API. Both calls return the raw platform status string.
type Authorizer interface {
	Status(ctx context.Context) (string, error)
	Request(ctx context.Context) (string, error)
}

// Prompter presents a confirmation to the user.
type Prompter interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// SettingsOpener deep-links to the OS settings screen.
type SettingsOpener interface {
	OpenSettings(ctx context.Context, url string) error
}

const (
	settingsTitle   = "Camera permission required"
	settingsMessage = "Camera access is needed to photograph products.\nOpen settings now?"
)

// Gate queries the OS permission once per activation and requests it at most once.
type Gate struct {
	authorizer Authorizer
	capability platform.Capability
	prompter   Prompter
	settings   SettingsOpener
	logger     *zap.Logger

	mu      sync.Mutex
	status  Status
	checked bool
	busy    bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithPrompter sets the confirmation shown before leaving for OS settings.
func WithPrompter(p Prompter) Option { return func(g *Gate) { g.prompter = p } }

// WithSettingsOpener sets the OS settings deep link.
func WithSettingsOpener(s SettingsOpener) Option { return func(g *Gate) { g.settings = s } }

// NewGate builds a gate in the not-determined state.
func NewGate(authorizer Authorizer, capability platform.Capability, logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		authorizer: authorizer,
		capability: capability,
		logger:     logging.OrNop(logger).Named("permission_gate"),
		status:     StatusNotDetermined,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Activate refreshes the permission state. A call made while another activation is
// in flight returns the current status without touching the OS.
func (g *Gate) Activate(ctx context.Context) (Status, error) {
	g.mu.Lock()
	if g.busy {
		status := g.status
		g.mu.Unlock()
		return status, nil
	}
	g.busy = true
	g.mu.Unlock()
	defer g.release()

	raw, err := g.authorizer.Status(ctx)
	if err != nil {
		g.logger.Error("camera permission query failed", zap.Error(err))
		return g.Status(), err
	}

	status := g.parse(raw)
	if status == StatusNotDetermined {
		g.set(StatusRequesting, false)
		raw, err = g.authorizer.Request(ctx)
		if err != nil {
			g.set(StatusNotDetermined, false)
			g.logger.Error("camera permission request failed", zap.Error(err))
			return StatusNotDetermined, err
		}
		status = g.parse(raw)
		g.logger.Info("camera permission requested", zap.String("result", string(status)))
	}

	g.set(status, true)
	return status, nil
}

// Status returns the last adopted permission state.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Checked reports whether an activation has completed.
func (g *Gate) Checked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checked
}

// IsAuthorized reports whether capture is allowed.
func (g *Gate) IsAuthorized() bool {
	return g.Status() == StatusAuthorized
}

// OpenSettingsPrompt asks for confirmation, then opens OS settings when accepted.
func (g *Gate) OpenSettingsPrompt(ctx context.Context) error {
	if g.settings == nil {
		return errors.New("no settings opener configured")
	}
	if g.prompter != nil {
		ok, err := g.prompter.Confirm(ctx, settingsTitle, settingsMessage)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	url := g.capability.SettingsURL()
	g.logger.Info("opening OS settings", zap.String("url", url))
	return g.settings.OpenSettings(ctx, url)
}

func (g *Gate) parse(raw string) Status {
	if g.capability.IsGranted(raw) {
		return StatusAuthorized
	}
	switch Status(raw) {
	case StatusNotDetermined, StatusRestricted:
		return Status(raw)
	default:
		return StatusDenied
	}
}

func (g *Gate) set(status Status, checked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = status
	if checked {
		g.checked = true
	}
}

func (g *Gate) release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}
