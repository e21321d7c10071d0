package user

import (
	"testing"
	"time"
)

func TestNewTruncatesCreatedAt(t *testing.T) {
	u := New("Ada", "ada@example.com", "hash")

	if u.ID == "" {
		t.Fatalf("expected an id")
	}

	if u.CreatedAt.Nanosecond() != 0 {
		t.Fatalf("createdAt keeps sub-second precision: %v", u.CreatedAt)
	}

	if u.CreatedAt.Location() != time.UTC {
		t.Fatalf("createdAt should be UTC, got %v", u.CreatedAt.Location())
	}

	if got := u.Public().CreatedAt; got[len(got)-5:] != ".000Z" {
		t.Fatalf("unexpected public createdAt %q", got)
	}
}
