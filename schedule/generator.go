package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventtools/eventtools/schedule/recurrence"
	"github.com/eventtools/eventtools/schedule/storage"
)

// SaveGenerator validates and persists a generator, then reconciles its
// occurrences. On first save the generator is assigned an ID and its
// occurrences are created; on later saves compatible timespan changes are
// applied to the existing occurrences (preserving their identity) before
// the candidate set is re-synced. Finally every sibling generator of the
// same event gets a single-level re-sync, since a change here may have
// freed or claimed (event, start) slots they were blocked on.
//
// A ValidationError means nothing was persisted.
func (s *Scheduler) SaveGenerator(ctx context.Context, g *storage.Generator) error {
	return s.saveGenerator(ctx, g, true)
}

// SaveGeneratorNoSync persists a generator without running the sync pass.
// Intended for bookkeeping-only updates where regeneration is undesired.
func (s *Scheduler) SaveGeneratorNoSync(ctx context.Context, g *storage.Generator) error {
	return s.saveGenerator(ctx, g, false)
}

func (s *Scheduler) saveGenerator(ctx context.Context, g *storage.Generator, generate bool) error {
	if err := s.normalizeGenerator(g); err != nil {
		return err
	}

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
		if err := s.store.CreateGenerator(ctx, g); err != nil {
			g.ID = uuid.Nil
			return fmt.Errorf("failed to persist generator: %w", err)
		}
	} else {
		old, err := s.store.GetGenerator(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("failed to load previous generator state: %w", err)
		}
		if err := s.applyTimespanShift(ctx, g, old); err != nil {
			return err
		}
		if err := s.store.UpdateGenerator(ctx, g); err != nil {
			return fmt.Errorf("failed to persist generator: %w", err)
		}
	}

	if !generate {
		return nil
	}

	if err := s.syncOccurrences(ctx, g); err != nil {
		return err
	}

	// A changed generator may have freed up or newly claimed slots other
	// generators of the event were blocked on. Their re-sync is a single
	// fan-out; it does not cascade further.
	siblings, err := s.store.ListGenerators(ctx, g.EventID)
	if err != nil {
		return fmt.Errorf("failed to list sibling generators: %w", err)
	}
	for _, sibling := range siblings {
		if sibling.ID == g.ID {
			continue
		}
		if err := s.syncOccurrences(ctx, sibling); err != nil {
			return fmt.Errorf("failed to re-sync sibling generator %s: %w", sibling.ID, err)
		}
	}
	return nil
}

// DeleteGenerator removes a generator and the occurrences it owns.
// Occurrences protected by an external reference are detached instead of
// deleted, so the reference keeps a valid target.
func (s *Scheduler) DeleteGenerator(ctx context.Context, g *storage.Generator) error {
	owned, err := s.ownedOccurrences(ctx, g)
	if err != nil {
		return err
	}
	for _, o := range owned {
		if err := s.removeOrDetach(ctx, o); err != nil {
			return err
		}
	}
	if err := s.store.DeleteGenerator(ctx, g.ID); err != nil {
		return fmt.Errorf("failed to delete generator: %w", err)
	}
	s.logger.Info("deleted generator", "generator", g.ID, "event", g.EventID)
	return nil
}

// RefreshBoundless re-runs the sync pass for every generator that has a
// rule but no repeat-until, advancing their occurrences up to the rolling
// horizon. Typically driven by a Refresher.
func (s *Scheduler) RefreshBoundless(ctx context.Context) error {
	generators, err := s.store.ListBoundlessGenerators(ctx)
	if err != nil {
		return fmt.Errorf("failed to list boundless generators: %w", err)
	}
	for _, g := range generators {
		if err := s.syncOccurrences(ctx, g); err != nil {
			return fmt.Errorf("failed to refresh generator %s: %w", g.ID, err)
		}
	}
	s.logger.Debug("refreshed boundless generators", "count", len(generators))
	return nil
}

// normalizeGenerator validates and normalizes in place. It runs before any
// write, so a failure leaves the store untouched.
func (s *Scheduler) normalizeGenerator(g *storage.Generator) error {
	if g.EventID == "" {
		return &ValidationError{Field: "event", Reason: "required"}
	}
	if g.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "required"}
	}
	if g.DurationMinutes < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if g.RepeatUntil != nil {
		if g.Rule == nil {
			return &ValidationError{Field: "repeat_until", Reason: "has no effect without a repetition rule"}
		}
		until := clampToDayEnd(*g.RepeatUntil)
		g.RepeatUntil = &until
		if until.Before(g.Start) {
			return &ValidationError{Field: "repeat_until", Reason: "must not be earlier than start"}
		}
	}
	// Guard against the common data-entry mistake of a daily repetition
	// whose single span covers more than a day.
	if g.Rule != nil && g.Rule.Frequency == recurrence.Daily && g.DurationMinutes >= 24*60 {
		return &ValidationError{Field: "duration", Reason: "a daily repetition must not span multiple days"}
	}
	return nil
}

// applyTimespanShift is the pre-update pass of a save: when the rule is
// unchanged but the base start or duration moved, the delta is applied
// uniformly to every owned occurrence. Record identity is preserved, so
// per-occurrence state (status, protected references) rides along. A
// changed rule skips the pass entirely; the sync pass rebuilds the
// candidate set from first principles instead.
func (s *Scheduler) applyTimespanShift(ctx context.Context, g, old *storage.Generator) error {
	if !old.Rule.Equal(g.Rule) {
		return nil
	}
	shift := g.Start.Sub(old.Start)
	if shift == 0 && old.DurationMinutes == g.DurationMinutes {
		return nil
	}

	owned, err := s.ownedOccurrences(ctx, g)
	if err != nil {
		return err
	}

	// ownedOccurrences returns ascending starts. A forward shift must move
	// the latest occurrence first or it would transiently collide with its
	// successor's slot.
	if shift > 0 {
		for i, j := 0, len(owned)-1; i < j; i, j = i+1, j-1 {
			owned[i], owned[j] = owned[j], owned[i]
		}
	}

	for _, o := range owned {
		o.Start = o.Start.Add(shift)
		o.DurationMinutes = g.DurationMinutes
		if err := s.store.UpdateOccurrence(ctx, o); err != nil {
			return fmt.Errorf("failed to shift occurrence %s: %w", o.ID, err)
		}
	}
	s.logger.Debug("shifted occurrences",
		"generator", g.ID, "count", len(owned),
		"shift", shift, "duration_minutes", g.DurationMinutes)
	return nil
}

// syncOccurrences is the sync pass: expand the candidate instants, confirm
// or create an occurrence per candidate, and remove the orphans the
// generator no longer produces.
func (s *Scheduler) syncOccurrences(ctx context.Context, g *storage.Generator) error {
	candidates, err := s.engine.Expand(g.Rule, g.Start, s.horizonFor(g))
	if err != nil {
		return err
	}

	excluded, err := s.exclusionSet(ctx, g.EventID)
	if err != nil {
		return err
	}

	owned, err := s.ownedOccurrences(ctx, g)
	if err != nil {
		return err
	}
	pool := make(map[int64]*storage.Occurrence, len(owned))
	for _, o := range owned {
		pool[o.Start.UnixNano()] = o
	}

	created := 0
	for _, c := range candidates {
		key := c.UnixNano()

		existing, err := s.store.GetOccurrenceAt(ctx, g.EventID, c)
		switch {
		case err == nil:
			// The slot is taken. Reconfirm only an occurrence we own that
			// is not excluded; anything else (manual, another generator's,
			// or excluded) satisfies the candidate without recreating it.
			// An owned-but-excluded occurrence stays in the pool and falls
			// out as an orphan below.
			if existing.GeneratedBy != nil && *existing.GeneratedBy == g.ID && !excluded[key] {
				delete(pool, key)
			}
			continue
		case !storage.IsErrorType(err, storage.ErrNotFound):
			return fmt.Errorf("failed to look up occurrence slot: %w", err)
		}

		if excluded[key] {
			continue
		}

		generatedBy := g.ID
		occ := &storage.Occurrence{
			ID:              uuid.New(),
			EventID:         g.EventID,
			Start:           c,
			DurationMinutes: g.DurationMinutes,
			GeneratedBy:     &generatedBy,
			WasGenerated:    true,
		}
		if err := s.store.CreateOccurrence(ctx, occ); err != nil {
			if storage.IsErrorType(err, storage.ErrAlreadyExists) {
				// Lost a race for the slot; whoever holds it satisfies the
				// candidate.
				s.logger.Debug("occurrence slot claimed concurrently",
					"event", g.EventID, "start", c)
				continue
			}
			return fmt.Errorf("failed to create occurrence: %w", err)
		}
		created++
	}

	// Everything left in the pool was produced by this generator but is no
	// longer a candidate: an orphan.
	for _, orphan := range pool {
		if err := s.removeOrDetach(ctx, orphan); err != nil {
			return err
		}
	}

	s.logger.Debug("synced generator",
		"generator", g.ID, "event", g.EventID,
		"candidates", len(candidates), "created", created, "orphans", len(pool))
	return nil
}

// removeOrDetach deletes an occurrence, falling back to a detach when the
// store reports it as protected by an external reference.
func (s *Scheduler) removeOrDetach(ctx context.Context, o *storage.Occurrence) error {
	err := s.store.DeleteOccurrence(ctx, o.ID)
	if err == nil {
		return nil
	}
	if !storage.IsErrorType(err, storage.ErrProtected) {
		return fmt.Errorf("failed to delete occurrence %s: %w", o.ID, err)
	}

	o.GeneratedBy = nil
	if err := s.store.UpdateOccurrence(ctx, o); err != nil {
		return fmt.Errorf("failed to detach protected occurrence %s: %w", o.ID, err)
	}
	s.logger.Info("detached protected occurrence", "occurrence", o.ID, "start", o.Start)
	return nil
}

func (s *Scheduler) ownedOccurrences(ctx context.Context, g *storage.Generator) ([]*storage.Occurrence, error) {
	owned, err := s.store.ListOccurrences(ctx, g.EventID, &storage.ListOptions{GeneratedBy: &g.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences of generator %s: %w", g.ID, err)
	}
	return owned, nil
}

func (s *Scheduler) exclusionSet(ctx context.Context, eventID string) (map[int64]bool, error) {
	exclusions, err := s.store.ListExclusions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	set := make(map[int64]bool, len(exclusions))
	for _, x := range exclusions {
		set[x.Start.UnixNano()] = true
	}
	return set, nil
}

// horizonFor returns the furthest instant the generator produces candidates
// for: its repeat-until bound, or now plus the default horizon.
func (s *Scheduler) horizonFor(g *storage.Generator) time.Time {
	if g.RepeatUntil != nil {
		return *g.RepeatUntil
	}
	return s.clock.Now().Add(s.cfg.DefaultHorizon)
}

// clampToDayEnd widens a date-only bound (midnight) to the last instant of
// that day, so "repeat until 31 Dec" still includes an occurrence at
// 31 Dec 09:00.
func clampToDayEnd(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
