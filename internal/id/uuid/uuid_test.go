// Package uuid includes tests for the session ID generator.
package uuid

import (
	"strings"
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewID ensures generated IDs are unique and valid UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	if _, err := goUUID.Parse(id1); err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if _, err := goUUID.Parse(id2); err != nil {
		t.Fatalf("id2 not valid UUID: %v", err)
	}
}

// TestGeneratorNewSessionID ensures session IDs carry the crawl prefix.
func TestGeneratorNewSessionID(t *testing.T) {
	t.Parallel()

	gen := New()
	id, err := gen.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID() error = %v", err)
	}
	if !strings.HasPrefix(id, "crawl-") {
		t.Fatalf("expected crawl- prefix, got %s", id)
	}
	if _, err := goUUID.Parse(strings.TrimPrefix(id, "crawl-")); err != nil {
		t.Fatalf("session id suffix not valid UUID: %v", err)
	}
}
