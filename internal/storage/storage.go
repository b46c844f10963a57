// Package storage defines the invocation audit log.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps ListInvocations when no limit is given.
const DefaultListLimit = 50

// MaxListLimit is the largest limit ListInvocations honors.
const MaxListLimit = 1000

// InvocationRecord describes one inbound operation. It never holds the
// recommended items or any credential, so it cannot serve as a result cache.
type InvocationRecord struct {
	ID         string        `json:"id"`
	RequestID  string        `json:"request_id,omitempty"`
	Operation  string        `json:"operation"`
	Subject    string        `json:"subject"`
	Outcome    string        `json:"outcome"` // "ok" or a domain.ErrorKind
	StatusCode int           `json:"status_code"`
	ItemCount  int           `json:"item_count"`
	Duration   time.Duration `json:"duration_ns"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Stamp assigns an ID and creation time when they are unset.
func (r *InvocationRecord) Stamp() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

// ListOptions filters ListInvocations. Results are newest first.
type ListOptions struct {
	Limit     int
	Operation string
	Subject   string
}

// EffectiveLimit clamps Limit into [1, MaxListLimit].
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}

// InvocationStore persists invocation records.
type InvocationStore interface {
	RecordInvocation(ctx context.Context, rec *InvocationRecord) error
	ListInvocations(ctx context.Context, opts ListOptions) ([]*InvocationRecord, error)
	Close() error
}
