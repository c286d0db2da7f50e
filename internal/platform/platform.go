// Package platform isolates the capability differences between the two mobile
// platform families. One implementation is selected at startup.
package platform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/viewlulu/internal/cosmetic"
)

// ErrUnknownPlatform is returned by Select for names it does not recognise.
var ErrUnknownPlatform = errors.New("unknown platform")

// Capability is the set of per-platform behaviors the client depends on.
type Capability interface {
	Name() string
	// NormalizeFileRef converts a camera file reference into the form the transport attaches.
	NormalizeFileRef(uri string) string
	// IsGranted reports whether a raw OS camera permission status grants access.
	IsGranted(raw string) bool
	SettingsURL() string
}

// Android preserves local-file URIs; its transport resolves them itself.
type Android struct{}

func (Android) Name() string { return "android" }

func (Android) NormalizeFileRef(uri string) string { return uri }

func (Android) IsGranted(raw string) bool {
	return raw == "granted" || raw == "authorized"
}

func (Android) SettingsURL() string { return "package:settings" }

// IOS attaches bare filesystem paths, so the local-file scheme is stripped.
type IOS struct{}

func (IOS) Name() string { return "ios" }

func (IOS) NormalizeFileRef(uri string) string {
	return strings.TrimPrefix(uri, cosmetic.FileScheme)
}

func (IOS) IsGranted(raw string) bool {
	return raw == "authorized" || raw == "granted"
}

func (IOS) SettingsURL() string { return "app-settings:" }

// Select returns the capability for name.
func Select(name string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "android":
		return Android{}, nil
	case "ios":
		return IOS{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
}
