package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "business rule violated", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "title is required")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "title is required" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "title"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("quota exceeded")
	wrapped := Wrap(CodeStateConflict, cause, "borrow limit reached")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndIsCode(t *testing.T) {
	err := fmt.Errorf("loading member: %w", New(CodeNotFound, "member not found"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("expected IsCode to match not found")
	}
	if IsCode(err, CodeConflict) {
		t.Fatalf("did not expect conflict match")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpExtractsPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "books_isbn_key", TableName: "books", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert book: %w", pgErr), "isbn already exists")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.DBDriver != "pgx" || dump.DBCode != "23505" || dump.DBConstraint != "books_isbn_key" || dump.DBTable != "books" {
		t.Fatalf("unexpected db fields: %+v", dump)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(dump.Chain))
	}
}

func TestDumpReadsSqliteConstraintMessage(t *testing.T) {
	err := Wrap(CodeConflict, fmt.Errorf("create book: %w", stdErrors.New("UNIQUE constraint failed: books.isbn")), "isbn already catalogued")

	dump := Dump(err)
	if dump.DBDriver != "sqlite" || dump.DBTable != "books" || dump.DBColumn != "isbn" {
		t.Fatalf("unexpected sqlite fields: %+v", dump)
	}
	if dump.DBMessage != "UNIQUE constraint failed: books.isbn" {
		t.Fatalf("unexpected message %q", dump.DBMessage)
	}

	detailed := Dump(New(CodeStateConflict, "borrowing quota exceeded").WithDetails(map[string]any{"max": 5}))
	if details, ok := detailed.Details.(map[string]any); !ok || details["max"] != 5 {
		t.Fatalf("expected details carried into dump, got %v", detailed.Details)
	}
	if detailed.DBDriver != "" {
		t.Fatalf("expected no db fields, got %+v", detailed)
	}
}
