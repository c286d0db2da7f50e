// Package usecase orchestrates the screen-level flows on top of the capture,
// detection and registration components.
package usecase

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/capture"
	"github.com/example/viewlulu/internal/detection"
	"github.com/example/viewlulu/internal/lifecycle"
	"github.com/example/viewlulu/internal/permission"
	"github.com/example/viewlulu/internal/registration"
	"github.com/example/viewlulu/internal/upload"
)

var (
	ErrHistoryDisabled = errors.New("detection history is not configured")
	ErrNoHistory       = errors.New("no detection recorded yet")
)

const waitingForCamera = "Waiting for the camera."

// Presenter renders alerts and spoken guidance.
type Presenter interface {
	Alert(title, message string)
	Announce(text string)
}

// Gate is the camera permission gate.
type Gate interface {
	Activate(ctx context.Context) (permission.Status, error)
	IsAuthorized() bool
	OpenSettingsPrompt(ctx context.Context) error
}

type nopPresenter struct{}

func (nopPresenter) Alert(string, string) {}
func (nopPresenter) Announce(string)      {}

func presenterOrNop(p Presenter) Presenter {
	if p == nil {
		return nopPresenter{}
	}
	return p
}

// bind derives a context that ends with either ctx or the scope.
func bind(ctx context.Context, scope *lifecycle.Scope) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(scope.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Message turns a flow error into text for an alert.
func Message(err error) string {
	var uploadErr *registration.UploadError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, detection.ErrEmptyDetectionResult):
		return "No matching cosmetic was found. Try again with better lighting."
	case errors.Is(err, detection.ErrDetectionInFlight), errors.Is(err, registration.ErrRegistrationInFlight):
		return "A request is already in progress."
	case errors.Is(err, permission.ErrPermissionDenied):
		return "Camera access is not allowed."
	case errors.Is(err, capture.ErrDeviceNotReady):
		return waitingForCamera
	case errors.Is(err, registration.ErrNameRequired):
		return "Enter a name for the cosmetic."
	case errors.Is(err, registration.ErrNoPhotos):
		return "Take at least one photo."
	case errors.Is(err, auth.ErrTokenMissing):
		return "Login required."
	case errors.Is(err, upload.ErrNetworkTimeout):
		return "The server took too long to respond."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.As(err, &uploadErr):
		return "Upload failed (" + http.StatusText(uploadErr.StatusCode) + ")."
	}

	if status, ok := upload.StatusCode(err); ok {
		if status == http.StatusUnauthorized {
			return "Login required."
		}
		return "The server rejected the request (" + http.StatusText(status) + ")."
	}
	var netErr *upload.NetworkError
	if errors.As(err, &netErr) {
		return "Network error. Check your connection and try again."
	}
	return err.Error()
}
