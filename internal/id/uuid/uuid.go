// Package uuid provides crawl session ID generation.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 session IDs. Session IDs sort by
// creation time, which keeps crawl_sessions listings chronological.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// NewSessionID returns a fresh crawl session identifier.
func (g Generator) NewSessionID() (string, error) {
	id, err := g.NewID()
	if err != nil {
		return "", err
	}
	return "crawl-" + id, nil
}
