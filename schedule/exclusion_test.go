package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventtools/eventtools/schedule/storage"
)

func TestExclusionDetachesGeneratedOccurrence(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	g := &storage.Generator{
		EventID:         "bin-night",
		Start:           time.Date(2010, 1, 8, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 60,
		Rule:            weeklyRule(),
		RepeatUntil:     dateOnly(2010, 2, 5),
	}
	require.NoError(t, s.SaveGenerator(ctx, g))

	clashingTime := time.Date(2010, 1, 15, 10, 30, 0, 0, time.UTC)
	existing, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	require.NotNil(t, existing.GeneratedBy)

	require.NoError(t, s.CreateExclusion(ctx, g.EventID, clashingTime))

	// Same record, now manual.
	detached, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, detached.ID)
	assert.Nil(t, detached.GeneratedBy)
	assert.True(t, detached.WasGenerated)
}

func TestExclusionSuppressesRegeneration(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	g := &storage.Generator{
		EventID:         "bin-night",
		Start:           time.Date(2010, 1, 8, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 60,
		Rule:            weeklyRule(),
		RepeatUntil:     dateOnly(2010, 2, 5),
	}
	require.NoError(t, s.SaveGenerator(ctx, g))

	clashingTime := time.Date(2010, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.CreateExclusion(ctx, g.EventID, clashingTime))

	detached, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	require.NoError(t, s.DeleteOccurrence(ctx, detached))

	require.NoError(t, s.SaveGenerator(ctx, g))

	_, err = store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	assert.True(t, storage.IsErrorType(err, storage.ErrNotFound))
	assert.Len(t, ownedBy(t, store, g), 4)
}

func TestCreateExclusionIsIdempotent(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	start := time.Date(2010, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.CreateExclusion(ctx, "bin-night", start))
	require.NoError(t, s.CreateExclusion(ctx, "bin-night", start))

	exclusions, err := store.ListExclusions(ctx, "bin-night")
	require.NoError(t, err)
	assert.Len(t, exclusions, 1)
}

func TestDeleteExclusionAllowsRegenerationButKeepsManual(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	g := &storage.Generator{
		EventID:         "bin-night",
		Start:           time.Date(2010, 1, 8, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 60,
		Rule:            weeklyRule(),
		RepeatUntil:     dateOnly(2010, 2, 5),
	}
	require.NoError(t, s.SaveGenerator(ctx, g))

	clashingTime := time.Date(2010, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.CreateExclusion(ctx, g.EventID, clashingTime))

	// Replace the detached occurrence with a manual one.
	detached, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	require.NoError(t, s.DeleteOccurrence(ctx, detached))

	// Deleting the once-generated occurrence re-records the exclusion,
	// which is absorbed as a no-op; a single exclusion covers the instant.
	exclusions, err := store.ListExclusions(ctx, g.EventID)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	require.NoError(t, s.DeleteExclusion(ctx, exclusions[0]))

	manual := &storage.Occurrence{EventID: g.EventID, Start: clashingTime}
	require.NoError(t, s.CreateOccurrence(ctx, manual))

	// With the exclusion gone the generator may produce the instant again,
	// but the manual occurrence already satisfies it.
	require.NoError(t, s.SaveGenerator(ctx, g))

	got, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, got.ID)
	assert.Nil(t, got.GeneratedBy)
}

func TestDeleteExclusionThenResyncRecreates(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	g := &storage.Generator{
		EventID:         "bin-night",
		Start:           time.Date(2010, 1, 8, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 60,
		Rule:            weeklyRule(),
		RepeatUntil:     dateOnly(2010, 2, 5),
	}
	require.NoError(t, s.SaveGenerator(ctx, g))

	clashingTime := time.Date(2010, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.CreateExclusion(ctx, g.EventID, clashingTime))

	detached, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	require.NoError(t, store.DeleteOccurrence(ctx, detached.ID))

	require.NoError(t, s.SaveGenerator(ctx, g))
	require.Len(t, ownedBy(t, store, g), 4)

	exclusions, err := store.ListExclusions(ctx, g.EventID)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	require.NoError(t, s.DeleteExclusion(ctx, exclusions[0]))

	require.NoError(t, s.SaveGenerator(ctx, g))
	assert.Len(t, ownedBy(t, store, g), 5)

	recreated, err := store.GetOccurrenceAt(ctx, g.EventID, clashingTime)
	require.NoError(t, err)
	assert.NotNil(t, recreated.GeneratedBy)
}
