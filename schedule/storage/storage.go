// Package storage defines the records the scheduling engine persists and
// the Storage interface that connects a backend (e.g. a database) to it.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage is the interface that must be implemented by storage backends.
// Please use the error types provided: reconciliation relies on
// ErrAlreadyExists for clash absorption, ErrProtected for detach-instead-
// of-delete semantics and ErrNotFound for missing records.
//
// Implementations must enforce uniqueness of (EventID, Start) for both
// occurrences and exclusions, on creation and on update. Instants that
// represent the same point in time must compare equal regardless of
// location.
type Storage interface {
	// Generator operations
	CreateGenerator(ctx context.Context, g *Generator) error
	UpdateGenerator(ctx context.Context, g *Generator) error
	GetGenerator(ctx context.Context, id uuid.UUID) (*Generator, error)
	// ListGenerators returns all generators of an event, ordered by start.
	ListGenerators(ctx context.Context, eventID string) ([]*Generator, error)
	// ListBoundlessGenerators returns every generator that has a rule but
	// no repeat-until bound, across all events. These are the generators
	// whose rolling horizon needs periodic refreshing.
	ListBoundlessGenerators(ctx context.Context) ([]*Generator, error)
	DeleteGenerator(ctx context.Context, id uuid.UUID) error

	// Occurrence operations
	CreateOccurrence(ctx context.Context, o *Occurrence) error
	UpdateOccurrence(ctx context.Context, o *Occurrence) error
	// GetOccurrenceAt finds the occurrence of an event at an exact start
	// instant, whoever owns it. Returns ErrNotFound when the slot is free.
	GetOccurrenceAt(ctx context.Context, eventID string, start time.Time) (*Occurrence, error)
	// ListOccurrences returns the occurrences of an event matching opts,
	// ordered by start. A nil opts returns all of them.
	ListOccurrences(ctx context.Context, eventID string, opts *ListOptions) ([]*Occurrence, error)
	// DeleteOccurrence removes an occurrence. Implementations must return
	// ErrProtected when an external reference with delete protection
	// points at the record.
	DeleteOccurrence(ctx context.Context, id uuid.UUID) error

	// Exclusion operations
	CreateExclusion(ctx context.Context, x *Exclusion) error
	ListExclusions(ctx context.Context, eventID string) ([]*Exclusion, error)
	DeleteExclusion(ctx context.Context, id uuid.UUID) error
}
