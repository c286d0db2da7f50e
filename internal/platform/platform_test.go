package platform

import (
	"errors"
	"testing"
)

func TestNormalizeFileRefDivergesPerPlatform(t *testing.T) {
	const ref = "file:///var/mobile/photo.jpg"

	if got := (Android{}).NormalizeFileRef(ref); got != ref {
		t.Fatalf("android must preserve the reference, got %q", got)
	}
	if got := (IOS{}).NormalizeFileRef(ref); got != "/var/mobile/photo.jpg" {
		t.Fatalf("ios must strip the file scheme, got %q", got)
	}
	if got := (IOS{}).NormalizeFileRef("/already/bare.jpg"); got != "/already/bare.jpg" {
		t.Fatalf("ios must leave bare paths alone, got %q", got)
	}
}

func TestIsGrantedAcceptsBothSpellings(t *testing.T) {
	for _, capability := range []Capability{Android{}, IOS{}} {
		for _, raw := range []string{"granted", "authorized"} {
			if !capability.IsGranted(raw) {
				t.Fatalf("%s: expected %q to be granted", capability.Name(), raw)
			}
		}
		for _, raw := range []string{"denied", "restricted", "not-determined", ""} {
			if capability.IsGranted(raw) {
				t.Fatalf("%s: expected %q not to be granted", capability.Name(), raw)
			}
		}
	}
}

func TestSelect(t *testing.T) {
	c, err := Select(" iOS ")
	if err != nil || c.Name() != "ios" {
		t.Fatalf("unexpected result: %v %v", c, err)
	}
	c, err = Select("android")
	if err != nil || c.Name() != "android" {
		t.Fatalf("unexpected result: %v %v", c, err)
	}
	if _, err := Select("windows-phone"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}
