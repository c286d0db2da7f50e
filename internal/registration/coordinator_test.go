package registration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/upload"
)

type stubUploader struct {
	resp   *upload.Response
	err    error
	calls  int
	name   string
	token  string
	photos []cosmetic.PhotoRef
}

func (s *stubUploader) RegisterBulk(ctx context.Context, name string, photos []cosmetic.PhotoRef, token string) (*upload.Response, error) {
	s.calls++
	s.name, s.token, s.photos = name, token, photos
	return s.resp, s.err
}

func fourPhotos() []cosmetic.PhotoRef {
	return []cosmetic.PhotoRef{
		cosmetic.NewPhotoRef("/tmp/1.jpg", "cosmetic_1.jpg"),
		cosmetic.NewPhotoRef("/tmp/2.jpg", "cosmetic_2.jpg"),
		cosmetic.NewPhotoRef("/tmp/3.jpg", "cosmetic_3.jpg"),
		cosmetic.NewPhotoRef("/tmp/4.jpg", "cosmetic_4.jpg"),
	}
}

func TestRegisterReadsTokenAtCallTime(t *testing.T) {
	tokens := auth.NewMemoryTokenStore("old")
	stub := &stubUploader{resp: &upload.Response{StatusCode: 201, Body: []byte(`{"cosmeticId":5,"cosmeticName":"Tint","photos":[{"s3Key":"a/1.jpg"}]}`)}}
	c := NewCoordinator(stub, tokens, nil)

	require.NoError(t, tokens.SetToken(context.Background(), "fresh"))

	record, err := c.Register(context.Background(), " Tint ", fourPhotos())
	require.NoError(t, err)
	assert.Equal(t, "fresh", stub.token)
	assert.Equal(t, "Tint", stub.name)
	assert.Len(t, stub.photos, 4)
	assert.Equal(t, cosmetic.ID("5"), record.ID)
	assert.Equal(t, "Tint", record.Name)
	require.Len(t, record.Photos, 1)
	assert.Equal(t, "a/1.jpg", record.Photos[0].StorageKey)
}

func TestRegisterWithoutTokenStillSends(t *testing.T) {
	stub := &stubUploader{resp: &upload.Response{Body: []byte(`{"id":1}`)}}
	_, err := NewCoordinator(stub, auth.NewMemoryTokenStore(""), nil).Register(context.Background(), "Tint", fourPhotos())
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Empty(t, stub.token)
}

func TestRegisterRejectsInvalidInputLocally(t *testing.T) {
	stub := &stubUploader{}
	c := NewCoordinator(stub, nil, nil)

	_, err := c.Register(context.Background(), "   ", fourPhotos())
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = c.Register(context.Background(), "Tint", nil)
	assert.ErrorIs(t, err, ErrNoPhotos)
	assert.Zero(t, stub.calls)
}

func TestRegisterNonOKIsUploadError(t *testing.T) {
	httpErr := &upload.HTTPError{StatusCode: http.StatusRequestEntityTooLarge, Body: "too large"}
	_, err := NewCoordinator(&stubUploader{err: httpErr}, nil, nil).Register(context.Background(), "Tint", fourPhotos())

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, uploadErr.StatusCode)
	assert.Equal(t, "too large", uploadErr.Body)
	assert.EqualError(t, err, "upload failed: 413")
	assert.ErrorIs(t, err, httpErr)
}

func TestRegisterNetworkErrorIsReturned(t *testing.T) {
	netErr := &upload.NetworkError{Op: "upload.register_bulk", Err: errors.New("connection reset")}
	_, err := NewCoordinator(&stubUploader{err: netErr}, nil, nil).Register(context.Background(), "Tint", fourPhotos())
	assert.Same(t, netErr, err)
}

type blockingUploader struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingUploader) RegisterBulk(ctx context.Context, name string, photos []cosmetic.PhotoRef, token string) (*upload.Response, error) {
	close(b.entered)
	<-b.release
	return &upload.Response{Body: []byte(`{"id":1}`)}, nil
}

func TestRegisterRejectsConcurrentCall(t *testing.T) {
	stub := &blockingUploader{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator(stub, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Register(context.Background(), "Tint", fourPhotos())
		done <- err
	}()
	<-stub.entered

	_, err := c.Register(context.Background(), "Tint", fourPhotos())
	assert.ErrorIs(t, err, ErrRegistrationInFlight)

	close(stub.release)
	require.NoError(t, <-done)
}

func TestRegisterOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("name missing"))
	}))
	defer server.Close()

	client := upload.NewClient(server.URL, nil, nil, upload.WithFileOpener(upload.FileOpenerFunc(func(string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("jpeg")), nil
	})))
	_, err := NewCoordinator(client, auth.NewMemoryTokenStore("tok"), nil).Register(context.Background(), "Tint", fourPhotos())

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "name missing", uploadErr.Body)
}
