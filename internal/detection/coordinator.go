// Package detection issues single-photo recognition requests and interprets the reply.
package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/upload"
)

const (
	MinTimeout     = 20 * time.Second
	MaxTimeout     = 30 * time.Second
	DefaultTimeout = MaxTimeout
)

var (
	// ErrEmptyDetectionResult is a 2xx reply without a detected identifier.
	ErrEmptyDetectionResult = errors.New("empty detection result")
	// ErrDetectionInFlight is returned when Detect is called while a request is pending.
	ErrDetectionInFlight = errors.New("detection already in flight")
)

// Uploader sends the photo to the detect endpoint.
type Uploader interface {
	Detect(ctx context.Context, photo cosmetic.PhotoRef) (*upload.Response, error)
}

// Coordinator allows one detection at a time.
type Coordinator struct {
	uploader Uploader
	logger   *zap.Logger
	timeout  time.Duration

	mu   sync.Mutex
	busy bool
}

type Option func(*Coordinator)

// WithTimeout bounds each detection. Values outside [MinTimeout, MaxTimeout] are clamped.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = ClampTimeout(d) }
}

// ClampTimeout returns d limited to the accepted detection bound. Zero selects the default.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}

func NewCoordinator(uploader Uploader, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		uploader: uploader,
		logger:   logging.OrNop(logger).Named("detection"),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout reports the bound applied to each call.
func (c *Coordinator) Timeout() time.Duration { return c.timeout }

// Busy reports whether a detection is pending.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Detect sends photo once and interprets the reply. Transport and HTTP errors
// are logged and returned as received.
func (c *Coordinator) Detect(ctx context.Context, photo cosmetic.PhotoRef) (cosmetic.DetectionResult, error) {
	if !c.acquire() {
		return cosmetic.DetectionResult{}, ErrDetectionInFlight
	}
	defer c.release()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger := c.logger.With(zap.String("photo", photo.Name))
	start := time.Now()

	resp, err := c.uploader.Detect(ctx, photo)
	if err != nil {
		logger.Error("detect request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return cosmetic.DetectionResult{}, err
	}

	result, err := Interpret(resp.Body)
	if err != nil {
		logger.Warn("detect response rejected",
			zap.String("request_id", resp.RequestID),
			zap.Int("bytes", len(resp.Body)),
			zap.Error(err),
		)
		return cosmetic.DetectionResult{}, err
	}

	logger.Info("detected",
		zap.String("request_id", resp.RequestID),
		zap.String("detected_id", result.DetectedID.String()),
		zap.String("source", string(result.Source)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// Interpret decodes a detect reply. A body without a detected identifier is
// ErrEmptyDetectionResult regardless of the HTTP status that carried it.
func Interpret(body []byte) (cosmetic.DetectionResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return cosmetic.DetectionResult{}, ErrEmptyDetectionResult
	}
	var result cosmetic.DetectionResult
	resp := upload.Response{Body: body}
	if err := resp.Decode(&result); err != nil {
		return cosmetic.DetectionResult{}, fmt.Errorf("%w: %w", ErrEmptyDetectionResult, err)
	}
	if result.DetectedID.IsZero() {
		return cosmetic.DetectionResult{}, ErrEmptyDetectionResult
	}
	return result, nil
}

func (c *Coordinator) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Coordinator) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}
