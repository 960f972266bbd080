package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventtools/eventtools/schedule/recurrence"
	"github.com/eventtools/eventtools/schedule/storage"
)

var testStart = time.Date(2010, 1, 8, 10, 30, 0, 0, time.UTC)

func TestStore_Generator(t *testing.T) {
	store := New()
	ctx := context.Background()

	// Test getting non-existent generator
	_, err := store.GetGenerator(ctx, uuid.New())
	if err == nil {
		t.Error("expected error getting non-existent generator")
	} else if err.(*storage.Error).Type != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	g := &storage.Generator{
		ID:              uuid.New(),
		EventID:         "event123",
		Start:           testStart,
		DurationMinutes: 60,
		Rule:            &recurrence.Rule{Frequency: recurrence.Weekly},
	}

	// Test creating generator
	if err := store.CreateGenerator(ctx, g); err != nil {
		t.Errorf("unexpected error creating generator: %v", err)
	}

	// Test creating duplicate generator
	if err := store.CreateGenerator(ctx, g); err == nil {
		t.Error("expected error creating duplicate generator")
	} else if err.(*storage.Error).Type != storage.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Test getting existing generator
	got, err := store.GetGenerator(ctx, g.ID)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.EventID != g.EventID {
		t.Errorf("got event ID %s, want %s", got.EventID, g.EventID)
	}

	// Reads must return copies, not shared pointers
	got.EventID = "mutated"
	again, _ := store.GetGenerator(ctx, g.ID)
	if again.EventID != "event123" {
		t.Error("GetGenerator leaked internal state")
	}

	// Test updating generator
	g.DurationMinutes = 90
	if err := store.UpdateGenerator(ctx, g); err != nil {
		t.Errorf("unexpected error updating generator: %v", err)
	}
	got, _ = store.GetGenerator(ctx, g.ID)
	if got.DurationMinutes != 90 {
		t.Errorf("got duration %d, want 90", got.DurationMinutes)
	}

	// Test updating non-existent generator
	missing := &storage.Generator{ID: uuid.New(), EventID: "event123", Start: testStart}
	if err := store.UpdateGenerator(ctx, missing); err == nil {
		t.Error("expected error updating non-existent generator")
	}

	// Test listing generators by event
	other := &storage.Generator{ID: uuid.New(), EventID: "other", Start: testStart}
	if err := store.CreateGenerator(ctx, other); err != nil {
		t.Errorf("unexpected error creating generator: %v", err)
	}
	list, err := store.ListGenerators(ctx, "event123")
	if err != nil {
		t.Errorf("unexpected error listing generators: %v", err)
	}
	if len(list) != 1 || list[0].ID != g.ID {
		t.Errorf("expected only event123's generator, got %d", len(list))
	}

	// Test deleting generator
	if err := store.DeleteGenerator(ctx, g.ID); err != nil {
		t.Errorf("unexpected error deleting generator: %v", err)
	}
	if err := store.DeleteGenerator(ctx, g.ID); err == nil {
		t.Error("expected error deleting generator twice")
	}
}

func TestStore_ListBoundlessGenerators(t *testing.T) {
	store := New()
	ctx := context.Background()

	until := testStart.AddDate(0, 1, 0)
	bounded := &storage.Generator{
		ID: uuid.New(), EventID: "e", Start: testStart,
		Rule: &recurrence.Rule{Frequency: recurrence.Weekly}, RepeatUntil: &until,
	}
	boundless := &storage.Generator{
		ID: uuid.New(), EventID: "e", Start: testStart.Add(time.Hour),
		Rule: &recurrence.Rule{Frequency: recurrence.Weekly},
	}
	oneOff := &storage.Generator{ID: uuid.New(), EventID: "e", Start: testStart.Add(2 * time.Hour)}

	for _, g := range []*storage.Generator{bounded, boundless, oneOff} {
		if err := store.CreateGenerator(ctx, g); err != nil {
			t.Fatalf("unexpected error creating generator: %v", err)
		}
	}

	list, err := store.ListBoundlessGenerators(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != boundless.ID {
		t.Errorf("expected only the boundless repeating generator, got %d", len(list))
	}
}

func TestStore_Occurrence(t *testing.T) {
	store := New()
	ctx := context.Background()

	o := &storage.Occurrence{
		ID:              uuid.New(),
		EventID:         "event123",
		Start:           testStart,
		DurationMinutes: 60,
	}

	// Test creating occurrence
	if err := store.CreateOccurrence(ctx, o); err != nil {
		t.Errorf("unexpected error creating occurrence: %v", err)
	}

	// Test uniqueness on (event, start)
	clash := &storage.Occurrence{ID: uuid.New(), EventID: "event123", Start: testStart}
	if err := store.CreateOccurrence(ctx, clash); err == nil {
		t.Error("expected error creating clashing occurrence")
	} else if err.(*storage.Error).Type != storage.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Same instant on another event is fine
	elsewhere := &storage.Occurrence{ID: uuid.New(), EventID: "event456", Start: testStart}
	if err := store.CreateOccurrence(ctx, elsewhere); err != nil {
		t.Errorf("unexpected error creating occurrence on other event: %v", err)
	}

	// Test lookup by start
	got, err := store.GetOccurrenceAt(ctx, "event123", testStart)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.ID != o.ID {
		t.Errorf("got occurrence %s, want %s", got.ID, o.ID)
	}
	if _, err := store.GetOccurrenceAt(ctx, "event123", testStart.Add(time.Hour)); err == nil {
		t.Error("expected error for empty slot")
	}

	// Test moving the occurrence re-indexes it
	o.Start = testStart.Add(2 * time.Hour)
	if err := store.UpdateOccurrence(ctx, o); err != nil {
		t.Errorf("unexpected error moving occurrence: %v", err)
	}
	if _, err := store.GetOccurrenceAt(ctx, "event123", testStart); err == nil {
		t.Error("expected old slot to be free after move")
	}
	if _, err := store.GetOccurrenceAt(ctx, "event123", o.Start); err != nil {
		t.Errorf("expected occurrence at new slot: %v", err)
	}

	// Test moving onto a taken slot
	taken := &storage.Occurrence{ID: uuid.New(), EventID: "event123", Start: testStart}
	if err := store.CreateOccurrence(ctx, taken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Start = testStart
	if err := store.UpdateOccurrence(ctx, o); err == nil {
		t.Error("expected error moving onto taken slot")
	} else if err.(*storage.Error).Type != storage.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	o.Start = testStart.Add(2 * time.Hour)

	// Test deleting occurrence
	if err := store.DeleteOccurrence(ctx, o.ID); err != nil {
		t.Errorf("unexpected error deleting occurrence: %v", err)
	}
	if err := store.DeleteOccurrence(ctx, o.ID); err == nil {
		t.Error("expected error deleting occurrence twice")
	}
	// The slot frees up again
	recreate := &storage.Occurrence{ID: uuid.New(), EventID: "event123", Start: testStart.Add(2 * time.Hour)}
	if err := store.CreateOccurrence(ctx, recreate); err != nil {
		t.Errorf("unexpected error reusing freed slot: %v", err)
	}
}

func TestStore_OccurrenceProtection(t *testing.T) {
	store := New()
	ctx := context.Background()

	o := &storage.Occurrence{ID: uuid.New(), EventID: "event123", Start: testStart}
	if err := store.CreateOccurrence(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.Protect(o.ID)
	err := store.DeleteOccurrence(ctx, o.ID)
	if err == nil {
		t.Fatal("expected error deleting protected occurrence")
	}
	if err.(*storage.Error).Type != storage.ErrProtected {
		t.Errorf("expected ErrProtected, got %v", err)
	}

	// Updates are still allowed while protected
	o.Status = storage.StatusCancelled
	if err := store.UpdateOccurrence(ctx, o); err != nil {
		t.Errorf("unexpected error updating protected occurrence: %v", err)
	}

	store.Unprotect(o.ID)
	if err := store.DeleteOccurrence(ctx, o.ID); err != nil {
		t.Errorf("unexpected error deleting after unprotect: %v", err)
	}
}

func TestStore_ListOccurrences(t *testing.T) {
	store := New()
	ctx := context.Background()

	genID := uuid.New()
	owned := &storage.Occurrence{
		ID: uuid.New(), EventID: "event123", Start: testStart,
		GeneratedBy: &genID, WasGenerated: true,
	}
	manual := &storage.Occurrence{ID: uuid.New(), EventID: "event123", Start: testStart.Add(time.Hour)}
	late := &storage.Occurrence{ID: uuid.New(), EventID: "event123", Start: testStart.AddDate(0, 0, 7)}

	for _, o := range []*storage.Occurrence{late, manual, owned} {
		if err := store.CreateOccurrence(ctx, o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Unfiltered, sorted ascending by start
	all, err := store.ListOccurrences(ctx, "event123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(all))
	}
	if !all[0].Start.Equal(testStart) || !all[2].Start.Equal(late.Start) {
		t.Error("expected occurrences sorted by start")
	}

	// Filter by owner
	byOwner, _ := store.ListOccurrences(ctx, "event123", &storage.ListOptions{GeneratedBy: &genID})
	if len(byOwner) != 1 || byOwner[0].ID != owned.ID {
		t.Errorf("expected only the owned occurrence, got %d", len(byOwner))
	}

	// Manual only
	manualOnly, _ := store.ListOccurrences(ctx, "event123", &storage.ListOptions{ManualOnly: true})
	if len(manualOnly) != 2 {
		t.Errorf("expected 2 manual occurrences, got %d", len(manualOnly))
	}

	// Time window
	windowEnd := testStart.Add(2 * time.Hour)
	window, _ := store.ListOccurrences(ctx, "event123", &storage.ListOptions{Start: &testStart, End: &windowEnd})
	if len(window) != 2 {
		t.Errorf("expected 2 occurrences in window, got %d", len(window))
	}
}

func TestStore_Exclusion(t *testing.T) {
	store := New()
	ctx := context.Background()

	x := &storage.Exclusion{ID: uuid.New(), EventID: "event123", Start: testStart}

	// Test creating exclusion
	if err := store.CreateExclusion(ctx, x); err != nil {
		t.Errorf("unexpected error creating exclusion: %v", err)
	}

	// Test uniqueness on (event, start)
	dup := &storage.Exclusion{ID: uuid.New(), EventID: "event123", Start: testStart}
	if err := store.CreateExclusion(ctx, dup); err == nil {
		t.Error("expected error creating duplicate exclusion")
	} else if err.(*storage.Error).Type != storage.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Test listing
	list, err := store.ListExclusions(ctx, "event123")
	if err != nil {
		t.Errorf("unexpected error listing exclusions: %v", err)
	}
	if len(list) != 1 || list[0].ID != x.ID {
		t.Errorf("expected 1 exclusion, got %d", len(list))
	}

	// Test deleting
	if err := store.DeleteExclusion(ctx, x.ID); err != nil {
		t.Errorf("unexpected error deleting exclusion: %v", err)
	}
	if err := store.DeleteExclusion(ctx, x.ID); err == nil {
		t.Error("expected error deleting exclusion twice")
	}
	// The slot frees up again
	if err := store.CreateExclusion(ctx, dup); err != nil {
		t.Errorf("unexpected error reusing freed slot: %v", err)
	}
}
