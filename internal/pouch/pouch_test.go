package pouch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/platform"
	"github.com/example/viewlulu/internal/upload"
)

func TestListAndGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case MinePath:
			_, _ = w.Write([]byte(`[{"id":1,"name":"Tint","thumbnail":"k/1.jpg","created_at":"2025-01-09T10:00:00Z"}]`))
		case "/cosmetics/1":
			_, _ = w.Write([]byte(`{"id":1,"name":"Tint","createdAt":"2025-01-09T10:00:00Z","photos":[{"storageKey":"k/1.jpg","originalName":"cosmetic_1.jpg","mimeType":"image/jpeg"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := upload.NewClient(server.URL, auth.NewMemoryTokenStore("tok"), platform.Android{})
	svc := NewService(client, "https://photos.example.com/", nil)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Tint", items[0].Name)
	assert.Equal(t, time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC), items[0].CreatedAt.UTC())

	record, err := svc.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, record.Photos, 1)
	assert.Equal(t, "https://photos.example.com/k/1.jpg", svc.PhotoURL(record.Photos[0]))

	_, err = svc.Get(context.Background(), "2")
	assert.Equal(t, "Cosmetic not found.", Describe(err))
}

func TestPhotoURL(t *testing.T) {
	svc := NewService(nil, "", nil)
	assert.Equal(t, "k/1.jpg", svc.PhotoURL(cosmetic.PhotoMeta{StorageKey: "k/1.jpg"}))

	svc = NewService(nil, "https://cdn.example.com", nil)
	assert.Equal(t, "https://cdn.example.com/k/1.jpg", svc.PhotoURL(cosmetic.PhotoMeta{StorageKey: "/k/1.jpg"}))
	assert.Equal(t, "https://other/x.jpg", svc.PhotoURL(cosmetic.PhotoMeta{StorageKey: "https://other/x.jpg"}))
	assert.Empty(t, svc.PhotoURL(cosmetic.PhotoMeta{}))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: auth.ErrTokenMissing, want: "Login required."},
		{err: &upload.HTTPError{StatusCode: 401}, want: "Your session has expired. Please log in again."},
		{err: &upload.HTTPError{StatusCode: 404}, want: "Cosmetic not found."},
		{err: &upload.HTTPError{StatusCode: 500}, want: "Failed to load cosmetic details."},
		{err: &upload.NetworkError{Op: "get", Err: context.DeadlineExceeded}, want: "The server took too long to respond."},
		{err: &upload.NetworkError{Op: "get", Err: errors.New("reset")}, want: "Network error. Check your connection and try again."},
		{err: errors.New("weird"), want: "An unknown error occurred."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.err))
	}
}

func TestGetRequiresID(t *testing.T) {
	_, err := NewService(nil, "", nil).Get(context.Background(), "")
	assert.Error(t, err)
}
