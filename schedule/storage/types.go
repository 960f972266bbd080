package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventtools/eventtools/schedule/recurrence"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	// ErrProtected signals that an external reference (e.g. a sold ticket)
	// prevents a record from being deleted.
	ErrProtected ErrorType = "protected"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsErrorType reports whether err is, or wraps, a *Error of the given type.
func IsErrorType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

// Status is the user-visible state of an occurrence. A blank status means
// the occurrence is on as scheduled.
type Status string

const (
	StatusCancelled   Status = "cancelled"
	StatusFullyBooked Status = "fully_booked"
)

// Generator holds a repetition rule and the timespan of its first
// occurrence. Saving a generator materializes occurrence records for every
// repetition starting before RepeatUntil (or before a configured rolling
// horizon when RepeatUntil is nil).
type Generator struct {
	// ID is assigned on first save; uuid.Nil marks an unsaved generator.
	ID uuid.UUID

	// EventID identifies the owning event. Events are opaque here.
	EventID string

	// Start is the start instant of the first occurrence.
	Start time.Time

	// DurationMinutes is the length of each occurrence. Zero with a
	// midnight start means the occurrences are all-day.
	DurationMinutes int

	// Rule is the repetition rule. Nil means a one-off generator.
	Rule *recurrence.Rule

	// RepeatUntil bounds generation. Nil with a rule set means the
	// generator repeats up to the rolling default horizon.
	RepeatUntil *time.Time
}

// End returns the end instant of the first occurrence.
func (g *Generator) End() time.Time {
	return g.Start.Add(time.Duration(g.DurationMinutes) * time.Minute)
}

// AllDay reports whether this generator produces all-day occurrences:
// a midnight start with no duration.
func (g *Generator) AllDay() bool {
	return isMidnight(g.Start) && g.DurationMinutes == 0
}

// Occurrence is a persisted timespan record of an event. Occurrences are
// created either manually or by a generator's sync pass.
type Occurrence struct {
	ID uuid.UUID

	// EventID identifies the owning event. (EventID, Start) is unique.
	EventID string

	Start           time.Time
	DurationMinutes int

	// GeneratedBy links the occurrence to the generator that produced it.
	// Nil means the occurrence is manual and reconciliation never touches
	// it. Detaching sets this to nil without deleting the record.
	GeneratedBy *uuid.UUID

	// WasGenerated stays true after a detach, so the occurrence remembers
	// it originated from a generator.
	WasGenerated bool

	Status Status
}

// Duration returns the occurrence length.
func (o *Occurrence) Duration() time.Duration {
	return time.Duration(o.DurationMinutes) * time.Minute
}

// End returns the end instant.
func (o *Occurrence) End() time.Time {
	return o.Start.Add(o.Duration())
}

// AllDay reports whether the occurrence is all-day: a midnight start with
// no duration. This is derived, not stored.
func (o *Occurrence) AllDay() bool {
	return isMidnight(o.Start) && o.DurationMinutes == 0
}

// IsManual reports whether the occurrence is currently unhooked from any
// generator.
func (o *Occurrence) IsManual() bool {
	return o.GeneratedBy == nil
}

func (o *Occurrence) IsCancelled() bool {
	return o.Status == StatusCancelled
}

func (o *Occurrence) IsFullyBooked() bool {
	return o.Status == StatusFullyBooked
}

// HasStarted reports whether the occurrence has started as of now.
func (o *Occurrence) HasStarted(now time.Time) bool {
	return !o.Start.After(now)
}

// HasFinished reports whether the occurrence has finished as of now.
func (o *Occurrence) HasFinished(now time.Time) bool {
	return o.End().Before(now)
}

// NowOn reports whether the occurrence is in progress as of now.
func (o *Occurrence) NowOn(now time.Time) bool {
	return o.HasStarted(now) && !o.HasFinished(now)
}

// Exclusion suppresses generation of an occurrence at a given instant for
// every generator of an event. (EventID, Start) is unique.
type Exclusion struct {
	ID      uuid.UUID
	EventID string
	Start   time.Time
}

// ListOptions filters occurrence listings.
type ListOptions struct {
	// GeneratedBy restricts results to occurrences owned by a generator.
	GeneratedBy *uuid.UUID

	// ManualOnly restricts results to occurrences with no generator.
	ManualOnly bool

	// Start / End restrict results to occurrences starting in the
	// inclusive range.
	Start *time.Time
	End   *time.Time
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
