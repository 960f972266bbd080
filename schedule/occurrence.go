package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventtools/eventtools/schedule/storage"
)

// CreateOccurrence persists a manual occurrence. Unlike reconciliation,
// a uniqueness clash here surfaces to the caller: they must pick another
// instant or add an exclusion to free the slot first.
func (s *Scheduler) CreateOccurrence(ctx context.Context, o *storage.Occurrence) error {
	if o.EventID == "" {
		return &ValidationError{Field: "event", Reason: "required"}
	}
	if o.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "required"}
	}
	if o.DurationMinutes < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if err := s.store.CreateOccurrence(ctx, o); err != nil {
		return fmt.Errorf("failed to create occurrence: %w", err)
	}
	return nil
}

// UpdateOccurrence persists edits to an occurrence (status, timespan).
// Editing a generated occurrence does not detach it; moving its start does,
// however, surface a clash if the new slot is taken.
func (s *Scheduler) UpdateOccurrence(ctx context.Context, o *storage.Occurrence) error {
	if o.DurationMinutes < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if err := s.store.UpdateOccurrence(ctx, o); err != nil {
		return fmt.Errorf("failed to update occurrence: %w", err)
	}
	return nil
}

// DeleteOccurrence removes an occurrence at a user's request.
//
// If the record was ever produced by a generator, a matching exclusion is
// created first: without it the next sync pass would silently regenerate
// the instant the user just removed. If the store reports the record as
// protected by an external reference, the occurrence is detached instead
// and the deletion request is treated as satisfied.
func (s *Scheduler) DeleteOccurrence(ctx context.Context, o *storage.Occurrence) error {
	if o.WasGenerated {
		if err := s.CreateExclusion(ctx, o.EventID, o.Start); err != nil {
			return fmt.Errorf("failed to record exclusion before delete: %w", err)
		}
	}

	err := s.store.DeleteOccurrence(ctx, o.ID)
	if err == nil {
		return nil
	}
	if !storage.IsErrorType(err, storage.ErrProtected) {
		return fmt.Errorf("failed to delete occurrence: %w", err)
	}

	if o.GeneratedBy != nil {
		o.GeneratedBy = nil
		if err := s.store.UpdateOccurrence(ctx, o); err != nil {
			return fmt.Errorf("failed to detach protected occurrence: %w", err)
		}
	}
	s.logger.Info("kept protected occurrence on delete request",
		"occurrence", o.ID, "start", o.Start)
	return nil
}
