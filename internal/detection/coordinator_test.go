package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/upload"
)

type stubUploader struct {
	body     string
	err      error
	calls    int
	deadline time.Duration
	block    chan struct{}
	entered  chan struct{}
}

func (s *stubUploader) Detect(ctx context.Context, photo cosmetic.PhotoRef) (*upload.Response, error) {
	s.calls++
	if dl, ok := ctx.Deadline(); ok {
		s.deadline = time.Until(dl)
	}
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return &upload.Response{StatusCode: 200, Body: []byte(s.body)}, nil
}

var photo = cosmetic.NewPhotoRef("/tmp/cosmetic_1.jpg", "cosmetic_1.jpg")

func TestDetectNormalizesIdentifier(t *testing.T) {
	stub := &stubUploader{body: `{"detectedId":"42"}`}
	result, err := NewCoordinator(stub, nil).Detect(context.Background(), photo)
	require.NoError(t, err)
	assert.Equal(t, cosmetic.ID("42"), result.DetectedID)
	assert.Empty(t, result.Candidates)
	assert.Nil(t, result.BestDistance)
	assert.Equal(t, 1, stub.calls)

	stub.body = `{"detectedId":42}`
	result, err = NewCoordinator(stub, nil).Detect(context.Background(), photo)
	require.NoError(t, err)
	n, ok := result.DetectedID.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestDetectPassesOptionalFieldsThrough(t *testing.T) {
	stub := &stubUploader{body: `{"detectedId":7,"bestDistance":0.12,"top5":[{"candidateId":7,"score":0.9},{"product_id":"3","score":0.4}],"source":"ahash"}`}
	result, err := NewCoordinator(stub, nil).Detect(context.Background(), photo)
	require.NoError(t, err)

	require.NotNil(t, result.BestDistance)
	assert.InDelta(t, 0.12, *result.BestDistance, 1e-9)
	assert.Equal(t, cosmetic.Source("ahash"), result.Source)
	assert.Equal(t, []cosmetic.Candidate{{ID: "7", Score: 0.9}, {ID: "3", Score: 0.4}}, result.Candidates)
}

func TestDetectEmptyResult(t *testing.T) {
	for _, body := range []string{`{}`, ``, `null`, `{"detectedId":""}`, `{"detectedId":null}`, `{"top5":[]}`} {
		t.Run(body, func(t *testing.T) {
			_, err := NewCoordinator(&stubUploader{body: body}, nil).Detect(context.Background(), photo)
			assert.ErrorIs(t, err, ErrEmptyDetectionResult)
		})
	}
}

func TestDetectUndecodableBodyIsEmptyResult(t *testing.T) {
	_, err := NewCoordinator(&stubUploader{body: `<html>`}, nil).Detect(context.Background(), photo)
	assert.ErrorIs(t, err, ErrEmptyDetectionResult)
	assert.Contains(t, err.Error(), "decode response")
}

func TestDetectReturnsUploadErrorUnchanged(t *testing.T) {
	want := &upload.HTTPError{StatusCode: 500, Body: "boom"}
	_, err := NewCoordinator(&stubUploader{err: want}, nil).Detect(context.Background(), photo)
	assert.Same(t, want, err)

	netErr := &upload.NetworkError{Op: "upload.detect", Err: context.DeadlineExceeded}
	_, err = NewCoordinator(&stubUploader{err: netErr}, nil).Detect(context.Background(), photo)
	assert.Same(t, netErr, err)
	assert.True(t, errors.Is(err, upload.ErrNetworkTimeout))
}

func TestDetectAppliesTimeout(t *testing.T) {
	stub := &stubUploader{body: `{"detectedId":1}`}
	c := NewCoordinator(stub, nil, WithTimeout(25*time.Second))
	_, err := c.Detect(context.Background(), photo)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, c.Timeout())
	assert.Greater(t, stub.deadline, 24*time.Second)
	assert.LessOrEqual(t, stub.deadline, 25*time.Second)
}

func TestClampTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, ClampTimeout(0))
	assert.Equal(t, MinTimeout, ClampTimeout(time.Second))
	assert.Equal(t, MaxTimeout, ClampTimeout(time.Minute))
	assert.Equal(t, 22*time.Second, ClampTimeout(22*time.Second))
}

func TestDetectRejectsConcurrentCall(t *testing.T) {
	stub := &stubUploader{body: `{"detectedId":1}`, block: make(chan struct{}), entered: make(chan struct{})}
	c := NewCoordinator(stub, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Detect(context.Background(), photo)
		done <- err
	}()
	<-stub.entered
	assert.True(t, c.Busy())

	_, err := c.Detect(context.Background(), photo)
	assert.ErrorIs(t, err, ErrDetectionInFlight)

	close(stub.block)
	require.NoError(t, <-done)
	assert.False(t, c.Busy())
	assert.Equal(t, 1, stub.calls)
}
