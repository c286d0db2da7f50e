// Package auth owns the process-wide access token and its inspection.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/example/viewlulu/internal/logging"
)

// ErrTokenMissing is returned when no credential is stored. It is non-fatal:
// requests proceed unauthenticated and the server decides.
var ErrTokenMissing = errors.New("auth token missing")

// TokenStore persists the access token. Only the authentication flow writes it.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token for the life of the process.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns a store seeded with token, which may be empty.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrTokenMissing
	}
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	return s.SetToken(ctx, "")
}

// FileTokenStore keeps the token in a file readable only by the current user.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore returns a store backed by path. The file is created on first write.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrTokenMissing
	}
	if err != nil {
		return "", logging.NewOperationError("auth.file_store.read", "", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

func (s *FileTokenStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return logging.NewOperationError("auth.file_store.mkdir", "", err)
	}
	if err := os.WriteFile(s.path, []byte(strings.TrimSpace(token)), 0o600); err != nil {
		return logging.NewOperationError("auth.file_store.write", "", fmt.Errorf("write %s: %w", s.path, err))
	}
	return nil
}

func (s *FileTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return logging.NewOperationError("auth.file_store.remove", "", err)
	}
	return nil
}
