package mode

import (
	"errors"
	"testing"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
)

func TestIsValid(t *testing.T) {
	for _, m := range All {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "vector", "VECTORIZE", "upscale"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestParse(t *testing.T) {
	m, err := Parse("outline")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != Outline {
		t.Errorf("Parse = %q, want outline", m)
	}

	_, err = Parse("vector")
	if !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}
