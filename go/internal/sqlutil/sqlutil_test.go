package sqlutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Message: "duplicate key value"}
	if !IsUniqueViolation(fmt.Errorf("insert user: %w", dup)) {
		t.Errorf("wrapped 23505 not detected")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Errorf("foreign key violation reported as unique violation")
	}
	if IsUniqueViolation(sql.ErrNoRows) {
		t.Errorf("ErrNoRows reported as unique violation")
	}
}

func TestNullConverters(t *testing.T) {
	if ToSqlString("").Valid {
		t.Errorf("empty string should be NULL")
	}
	if got := FromSqlString(ToSqlString("USA")); got != "USA" {
		t.Errorf("round trip = %q", got)
	}
	if FromSqlStringPtr(sql.NullString{}) != nil {
		t.Errorf("NULL string should be nil pointer")
	}

	id := uuid.New()
	if got := FromNullUUID(ToNullUUID(&id)); got == nil || *got != id {
		t.Errorf("uuid round trip = %v", got)
	}
	if FromNullUUID(ToNullUUID(nil)) != nil {
		t.Errorf("nil uuid should stay nil")
	}

	now := time.Now()
	if got := FromSqlTime(ToSqlTime(&now)); got == nil || !got.Equal(now) {
		t.Errorf("time round trip = %v", got)
	}
}
