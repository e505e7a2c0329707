package inter

import (
	"errors"
	"testing"
)

// TestGuardReentry verifies that a held guard rejects a nested entry with
// ErrReentrant and becomes usable again after release.
func TestGuardReentry(t *testing.T) {
	var g Guard

	release, err := g.Enter()
	if err != nil {
		t.Fatalf("first Enter failed: %v", err)
	}

	if _, err := g.Enter(); !errors.Is(err, ErrReentrant) {
		t.Errorf("nested Enter = %v, want ErrReentrant", err)
	}

	release()

	release2, err := g.Enter()
	if err != nil {
		t.Fatalf("Enter after release failed: %v", err)
	}
	release2()
}

// TestGuardZeroValue verifies that the zero value is immediately usable. The
// guards live inside sale events and proposals which are constructed with
// plain struct literals.
func TestGuardZeroValue(t *testing.T) {
	var g Guard
	release, err := g.Enter()
	if err != nil {
		t.Fatalf("zero-value Enter failed: %v", err)
	}
	release()
}
