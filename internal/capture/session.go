// Package capture drives the guided, ordered multi-shot photo acquisition.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/permission"
)

// Capacity is the number of photos a registration session collects.
const Capacity = 4

var (
	// ErrDeviceNotReady means no camera handle is attached yet.
	ErrDeviceNotReady = errors.New("camera device not ready")
	// ErrCaptureInFlight is returned, without any state change, while a shutter call is pending.
	ErrCaptureInFlight = errors.New("capture already in flight")
	// ErrSessionComplete is returned once every photo has been taken.
	ErrSessionComplete = errors.New("capture session complete")
)

// Guide is one instructional prompt shown before a shot.
type Guide struct {
	Title       string
	Description string
}

// Guides are shown in order; photos past the last guide reuse it.
var Guides = []Guide{
	{Title: "Front", Description: "Photograph the front of the product."},
	{Title: "Side", Description: "Photograph the side of the product."},
	{Title: "Top", Description: "Photograph the top of the product."},
	{Title: "Detail", Description: "Photograph a distinctive feature of the product."},
}

// State is the observable phase of a session.
type State string

const (
	StateWaitingForDevice State = "waiting-for-device"
	StateIdle             State = "idle"
	StateCapturing        State = "capturing"
	StateComplete         State = "complete"
)

// Camera takes one photo and returns the path of the written file.
type Camera interface {
	TakePhoto(ctx context.Context) (string, error)
}

// Authorization reports whether the camera may be used.
type Authorization interface {
	IsAuthorized() bool
}

// CompleteFunc receives the ordered photo list when the session fills up.
type CompleteFunc func(ctx context.Context, photos []cosmetic.PhotoRef)

// Session collects Capacity photos, strictly one at a time.
type Session struct {
	auth       Authorization
	onComplete CompleteFunc
	logger     *zap.Logger

	mu        sync.Mutex
	camera    Camera
	photos    []cosmetic.PhotoRef
	capturing bool
	complete  bool
	handedOff bool
}

// Option configures a Session.
type Option func(*Session)

// WithOnComplete sets the handoff invoked exactly once when the session completes.
func WithOnComplete(fn CompleteFunc) Option { return func(s *Session) { s.onComplete = fn } }

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option { return func(s *Session) { s.logger = logger } }

// NewSession creates an empty session gated on auth.
func NewSession(auth Authorization, opts ...Option) *Session {
	s := &Session{auth: auth, photos: make([]cosmetic.PhotoRef, 0, Capacity)}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("capture_session")
	return s
}

// AttachCamera marks the device ready.
func (s *Session) AttachCamera(cam Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

// DetachCamera returns the session to the waiting-for-device state.
func (s *Session) DetachCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = nil
}

// Capture takes the next photo. Captures are sequential: the guide only advances
// after the pending shutter call resolves.
func (s *Session) Capture(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.complete:
		s.mu.Unlock()
		return ErrSessionComplete
	case s.capturing:
		s.mu.Unlock()
		return ErrCaptureInFlight
	case s.auth != nil && !s.auth.IsAuthorized():
		s.mu.Unlock()
		return permission.ErrPermissionDenied
	case s.camera == nil:
		s.mu.Unlock()
		return ErrDeviceNotReady
	}
	cam := s.camera
	index := len(s.photos)
	s.capturing = true
	s.mu.Unlock()

	path, err := cam.TakePhoto(ctx)
	if err == nil {
		err = ctx.Err()
	}

	s.mu.Lock()
	s.capturing = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("capture failed", zap.Int("index", index), zap.Error(err))
		return err
	}

	s.photos = append(s.photos, cosmetic.NewPhotoRef(path, fmt.Sprintf("cosmetic_%d.jpg", index+1)))
	s.logger.Debug("photo captured", zap.Int("index", index), zap.String("path", path))

	var handoff []cosmetic.PhotoRef
	if len(s.photos) == Capacity {
		s.complete = true
		if !s.handedOff && s.onComplete != nil {
			s.handedOff = true
			handoff = append([]cosmetic.PhotoRef(nil), s.photos...)
		}
	}
	fn := s.onComplete
	s.mu.Unlock()

	if handoff != nil {
		s.logger.Info("capture session complete", zap.Int("photos", len(handoff)))
		fn(ctx, handoff)
	}
	return nil
}

// State reports the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.complete:
		return StateComplete
	case s.capturing:
		return StateCapturing
	case s.camera == nil:
		return StateWaitingForDevice
	default:
		return StateIdle
	}
}

// Len is the number of photos taken so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos)
}

// GuideIndex selects the current prompt; it equals Len while the session is incomplete.
func (s *Session) GuideIndex() int { return s.Len() }

// Guide returns the prompt for the next shot.
func (s *Session) Guide() Guide {
	i := s.GuideIndex()
	if i >= len(Guides) {
		return Guides[len(Guides)-1]
	}
	return Guides[i]
}

// Step renders the progress label for the next shot, e.g. "2 / 4".
func (s *Session) Step() string {
	n := s.Len() + 1
	if n > Capacity {
		n = Capacity
	}
	return fmt.Sprintf("%d / %d", n, Capacity)
}

// Complete reports whether every photo has been taken.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Photos returns a copy of the ordered photo list.
func (s *Session) Photos() []cosmetic.PhotoRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cosmetic.PhotoRef(nil), s.photos...)
}
