// Package generation turns free-form generated text into validated structured records.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

var (
	ErrNoGenerator   = errors.New("no text generator configured")
	ErrEmptyResponse = errors.New("empty generated response")
	ErrNoJSON        = errors.New("no JSON object in generated response")
)

// Status tags the outcome of one generation attempt.
type Status int

const (
	Generated Status = iota
	Unavailable
	Malformed
)

func (s Status) String() string {
	switch s {
	case Generated:
		return "generated"
	case Unavailable:
		return "unavailable"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the tagged result of asking a generator for a structured record.
// Value is only meaningful when Status is Generated.
type Outcome[T any] struct {
	Status Status
	Value  T
	Err    error
	Raw    string
}

// OK reports whether a parsed value is available.
func (o Outcome[T]) OK() bool {
	return o.Status == Generated
}

// Attempt prompts gen and decodes the reply against contract.
// It never panics on generator output and never returns a Generated outcome
// whose value failed validation.
func Attempt[T any](ctx context.Context, gen ports.TextGenerator, contract *Contract, prompt string) Outcome[T] {
	if gen == nil {
		return Outcome[T]{Status: Unavailable, Err: ErrNoGenerator}
	}

	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		return Outcome[T]{Status: Unavailable, Err: fmt.Errorf("%s: generate: %w", contract.Name(), err)}
	}
	if strings.TrimSpace(raw) == "" {
		return Outcome[T]{Status: Unavailable, Err: fmt.Errorf("%s: %w", contract.Name(), ErrEmptyResponse), Raw: raw}
	}

	block, ok := ExtractJSON(raw)
	if !ok {
		return Outcome[T]{Status: Malformed, Err: fmt.Errorf("%s: %w", contract.Name(), ErrNoJSON), Raw: raw}
	}

	var value T
	if err := contract.Decode(block, &value); err != nil {
		return Outcome[T]{Status: Malformed, Err: err, Raw: raw}
	}

	return Outcome[T]{Status: Generated, Value: value, Raw: raw}
}

// Stats counts outcomes per status.
type Stats struct {
	Generated   int `json:"generated"`
	Unavailable int `json:"unavailable"`
	Malformed   int `json:"malformed"`
}

// Record increments the counter for s.
func (st *Stats) Record(s Status) {
	switch s {
	case Generated:
		st.Generated++
	case Unavailable:
		st.Unavailable++
	case Malformed:
		st.Malformed++
	}
}

// Add merges other into st.
func (st *Stats) Add(other Stats) {
	st.Generated += other.Generated
	st.Unavailable += other.Unavailable
	st.Malformed += other.Malformed
}

// Fallbacks is the number of attempts that did not produce a usable record.
func (st Stats) Fallbacks() int {
	return st.Unavailable + st.Malformed
}
