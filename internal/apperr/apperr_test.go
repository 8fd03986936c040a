package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error is internal", errors.New("boom"), KindInternal},
		{"direct", NotFound("calendar not found"), KindNotFound},
		{"wrapped", fmt.Errorf("create appointment: %w", Conflict("overlap")), KindConflict},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindNotFound:     http.StatusNotFound,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%v.HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}

func TestWithDetailDoesNotMutateReceiver(t *testing.T) {
	base := Conflict("overlap")
	withConflicts := base.WithDetail("conflicts", []string{"a"})

	if len(base.Details) != 0 {
		t.Errorf("base details mutated: %v", base.Details)
	}
	if _, ok := withConflicts.Details["conflicts"]; !ok {
		t.Error("expected conflicts detail")
	}
	if !Is(withConflicts, KindConflict) {
		t.Error("kind should be preserved")
	}
}
