// Package registration submits a completed capture as one named catalog entry.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/upload"
)

var (
	ErrNameRequired         = errors.New("cosmetic name is required")
	ErrNoPhotos             = errors.New("at least one photo is required")
	ErrRegistrationInFlight = errors.New("registration already in flight")
)

// UploadError is a rejected bulk registration. Body holds the response text.
type UploadError struct {
	StatusCode int
	Body       string
	cause      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %d", e.StatusCode)
}

func (e *UploadError) Unwrap() error { return e.cause }

// Uploader sends the bulk multipart request.
type Uploader interface {
	RegisterBulk(ctx context.Context, name string, photos []cosmetic.PhotoRef, token string) (*upload.Response, error)
}

// Coordinator allows one registration at a time.
type Coordinator struct {
	uploader Uploader
	tokens   auth.TokenStore
	logger   *zap.Logger

	mu   sync.Mutex
	busy bool
}

func NewCoordinator(uploader Uploader, tokens auth.TokenStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		uploader: uploader,
		tokens:   tokens,
		logger:   logging.OrNop(logger).Named("registration"),
	}
}

// Register sends exactly one bulk request for photos under name. The token is
// read from the store at call time.
func (c *Coordinator) Register(ctx context.Context, name string, photos []cosmetic.PhotoRef) (cosmetic.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return cosmetic.Record{}, ErrNameRequired
	}
	if len(photos) == 0 {
		return cosmetic.Record{}, ErrNoPhotos
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return cosmetic.Record{}, ErrRegistrationInFlight
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	logger := c.logger.With(zap.String("name", name), zap.Int("photos", len(photos)))
	token := c.currentToken(ctx, logger)

	resp, err := c.uploader.RegisterBulk(ctx, name, photos, token)
	if err != nil {
		var httpErr *upload.HTTPError
		if errors.As(err, &httpErr) {
			logger.Error("bulk registration rejected", zap.Int("status", httpErr.StatusCode), zap.String("body", httpErr.Body))
			return cosmetic.Record{}, &UploadError{StatusCode: httpErr.StatusCode, Body: httpErr.Body, cause: err}
		}
		logger.Error("bulk registration failed", zap.Error(err))
		return cosmetic.Record{}, err
	}

	var record cosmetic.Record
	if err := resp.Decode(&record); err != nil {
		logger.Error("failed to decode created record", zap.Error(err))
		return cosmetic.Record{}, err
	}
	logger.Info("cosmetic registered", zap.String("id", record.ID.String()), zap.String("request_id", resp.RequestID))
	return record, nil
}

func (c *Coordinator) currentToken(ctx context.Context, logger *zap.Logger) string {
	if c.tokens == nil {
		logger.Warn("auth token missing")
		return ""
	}
	token, err := c.tokens.Token(ctx)
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		logger.Warn("auth token missing")
	case err != nil:
		logger.Warn("failed to read auth token", zap.Error(err))
	}
	return token
}
