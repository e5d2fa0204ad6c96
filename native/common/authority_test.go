package common

import (
	"errors"
	"testing"
)

func addr(suffix byte) [20]byte {
	var out [20]byte
	out[len(out)-1] = suffix
	return out
}

func TestAuthorizeNilAuthorizerDenies(t *testing.T) {
	if err := Authorize(nil, CapabilityFiller, addr(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("nil authorizer: got %v", err)
	}
}

func TestStaticAuthorizerGrantRevoke(t *testing.T) {
	auth := NewStaticAuthorizer()
	holder := addr(1)

	if err := Authorize(auth, CapabilityAdmin, holder); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ungranted: got %v", err)
	}
	auth.Grant(CapabilityAdmin, holder)
	if err := Authorize(auth, CapabilityAdmin, holder); err != nil {
		t.Fatalf("granted: got %v", err)
	}
	// Grants do not bleed across capabilities.
	if err := Authorize(auth, CapabilityFiller, holder); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("other capability: got %v", err)
	}
	auth.Revoke(CapabilityAdmin, holder)
	if err := Authorize(auth, CapabilityAdmin, holder); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked: got %v", err)
	}
}

type pausedView map[string]bool

func (p pausedView) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "vault"); err != nil {
		t.Fatalf("nil view: %v", err)
	}
	view := pausedView{"vault": true}
	if err := Guard(view, "vault"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("paused module: got %v", err)
	}
	if err := Guard(view, "other"); err != nil {
		t.Fatalf("unpaused module: %v", err)
	}
}
