// Package ids centralizes identifier creation for insights, actions and checklist items.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator hands out identifiers unique within a process.
type Generator interface {
	NewID(prefix string) string
}

// UUID generates random v4 identifiers.
type UUID struct{}

// NewID returns prefix_<uuid>, or a bare uuid when prefix is empty.
func (UUID) NewID(prefix string) string {
	id := uuid.New().String()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// Sequence generates predictable identifiers; used by tests and dry runs.
type Sequence struct {
	mu   sync.Mutex
	next int
}

// NewID returns prefix-N with N increasing from 1.
func (s *Sequence) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, s.next)
}
