package apperr

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"connectrpc.com/connect"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(KindPreconditionFailed, "need %d players online, currently have %d", 5, 3)
	wrapped := fmt.Errorf("start game: %w", base)

	if got := KindOf(wrapped); got != KindPreconditionFailed {
		t.Fatalf("KindOf = %s, want %s", got, KindPreconditionFailed)
	}
	if got := PublicMessage(wrapped); got != "need 5 players online, currently have 3" {
		t.Errorf("PublicMessage = %q", got)
	}
}

func TestInternalIsRedacted(t *testing.T) {
	err := Internal(sql.ErrConnDone)

	if got := PublicMessage(err); got != "internal error" {
		t.Errorf("PublicMessage = %q, want redacted", got)
	}
	if got := PublicMessage(sql.ErrNoRows); got != "internal error" {
		t.Errorf("unclassified error leaked: %q", got)
	}
	if KindOf(sql.ErrNoRows) != KindInternal {
		t.Errorf("unclassified error should be Internal")
	}
}

func TestTransportMapping(t *testing.T) {
	tests := []struct {
		kind   Kind
		code   connect.Code
		status int
	}{
		{KindUnauthorized, connect.CodeUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, connect.CodePermissionDenied, http.StatusForbidden},
		{KindNotFound, connect.CodeNotFound, http.StatusNotFound},
		{KindPreconditionFailed, connect.CodeFailedPrecondition, http.StatusPreconditionFailed},
		{KindValidationFailed, connect.CodeInvalidArgument, http.StatusBadRequest},
		{KindConflict, connect.CodeAborted, http.StatusConflict},
		{KindInternal, connect.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Code(tt.kind); got != tt.code {
			t.Errorf("Code(%s) = %v, want %v", tt.kind, got, tt.code)
		}
		if got := HTTPStatus(tt.kind); got != tt.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.status)
		}
	}
}

func TestToConnectSetsKindHeader(t *testing.T) {
	err := ToConnect(New(KindForbidden, "only the operator can start the game"))

	if err.Code() != connect.CodePermissionDenied {
		t.Fatalf("code = %v", err.Code())
	}
	if got := err.Meta().Get("Error-Kind"); got != string(KindForbidden) {
		t.Errorf("Error-Kind header = %q", got)
	}
	if err.Message() != "only the operator can start the game" {
		t.Errorf("message = %q", err.Message())
	}
}
