package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventtools/eventtools/schedule/storage"
)

// CreateExclusion marks an instant of an event as never to be (re)generated.
// Any generated occurrence already sitting at that instant is immediately
// detached — unhooked from its generator, not deleted — so user data on the
// record (status etc.) is preserved. Creating the same exclusion twice is a
// no-op after the first.
func (s *Scheduler) CreateExclusion(ctx context.Context, eventID string, start time.Time) error {
	if eventID == "" {
		return &ValidationError{Field: "event", Reason: "required"}
	}
	if start.IsZero() {
		return &ValidationError{Field: "start", Reason: "required"}
	}

	x := &storage.Exclusion{
		ID:      uuid.New(),
		EventID: eventID,
		Start:   start,
	}
	if err := s.store.CreateExclusion(ctx, x); err != nil {
		if storage.IsErrorType(err, storage.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create exclusion: %w", err)
	}

	clashing, err := s.store.GetOccurrenceAt(ctx, eventID, start)
	if err != nil {
		if storage.IsErrorType(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up clashing occurrence: %w", err)
	}
	if clashing.GeneratedBy == nil {
		return nil
	}

	clashing.GeneratedBy = nil
	if err := s.store.UpdateOccurrence(ctx, clashing); err != nil {
		return fmt.Errorf("failed to detach excluded occurrence: %w", err)
	}
	s.logger.Info("detached occurrence matching new exclusion",
		"event", eventID, "start", start, "occurrence", clashing.ID)
	return nil
}

// DeleteExclusion removes an exclusion. Existing occurrences are untouched;
// future sync passes may simply (re)create an occurrence at the instant
// again if a generator's candidate set includes it.
func (s *Scheduler) DeleteExclusion(ctx context.Context, x *storage.Exclusion) error {
	if err := s.store.DeleteExclusion(ctx, x.ID); err != nil {
		return fmt.Errorf("failed to delete exclusion: %w", err)
	}
	return nil
}
