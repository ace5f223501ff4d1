package inbound

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sessions/core"
)

func TestBadInputErrorCarriesRichEnvelope(t *testing.T) {
	err := inboundBadInput("inbound: number is required", map[string]any{"field": "number"})

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad_input category, got %q", rich.Category)
	}
	if rich.TextCode != core.SessionErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.SessionErrorBadInput, rich.TextCode)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected %d code, got %d", http.StatusBadRequest, rich.Code)
	}
}

func TestStatusForErrorReadsEnvelopeCode(t *testing.T) {
	conflict := goerrors.New("pairing in progress", goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(core.SessionErrorConflict)
	if got := statusForError(conflict); got != http.StatusConflict {
		t.Fatalf("expected 409, got %d", got)
	}
	if got := statusForError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 fallback, got %d", got)
	}
}
