// Package pouch reads the signed-in user's catalog.
package pouch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/upload"
)

const MinePath = "/cosmetics/me"

// Fetcher issues authenticated GET requests.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// Service lists and resolves catalog entries.
type Service struct {
	fetcher      Fetcher
	photoBaseURL string
	logger       *zap.Logger
}

func NewService(fetcher Fetcher, photoBaseURL string, logger *zap.Logger) *Service {
	return &Service{
		fetcher:      fetcher,
		photoBaseURL: strings.TrimSuffix(strings.TrimSpace(photoBaseURL), "/"),
		logger:       logging.OrNop(logger).Named("pouch"),
	}
}

// List returns the user's entries as the service orders them.
func (s *Service) List(ctx context.Context) ([]cosmetic.Summary, error) {
	var items []cosmetic.Summary
	if err := s.fetcher.GetJSON(ctx, MinePath, &items); err != nil {
		s.logger.Warn("failed to list cosmetics", zap.Error(err))
		return nil, err
	}
	return items, nil
}

// Get returns one entry with its photo metadata.
func (s *Service) Get(ctx context.Context, id cosmetic.ID) (cosmetic.Record, error) {
	if id.IsZero() {
		return cosmetic.Record{}, errors.New("cosmetic id is required")
	}
	var record cosmetic.Record
	if err := s.fetcher.GetJSON(ctx, "/cosmetics/"+url.PathEscape(id.String()), &record); err != nil {
		s.logger.Warn("failed to load cosmetic", zap.String("id", id.String()), zap.Error(err))
		return cosmetic.Record{}, err
	}
	return record, nil
}

// PhotoURL resolves a stored photo to a fetchable address. Keys that are
// already absolute URLs are returned unchanged.
func (s *Service) PhotoURL(meta cosmetic.PhotoMeta) string {
	key := strings.TrimSpace(meta.StorageKey)
	if key == "" || strings.Contains(key, "://") || s.photoBaseURL == "" {
		return key
	}
	return s.photoBaseURL + "/" + strings.TrimPrefix(key, "/")
}

// Describe turns a catalog error into a message for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, auth.ErrTokenMissing) {
		return "Login required."
	}
	if status, ok := upload.StatusCode(err); ok {
		switch status {
		case http.StatusNotFound:
			return "Cosmetic not found."
		case http.StatusUnauthorized:
			return "Your session has expired. Please log in again."
		default:
			return "Failed to load cosmetic details."
		}
	}
	var netErr *upload.NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "The server took too long to respond."
		}
		return "Network error. Check your connection and try again."
	}
	return "An unknown error occurred."
}
