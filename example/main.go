// Command example demonstrates the schedule package against the in-memory
// store: generators, manual occurrences, exclusions, delete protection and
// the periodic horizon refresh.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/eventtools/eventtools/schedule"
	"github.com/eventtools/eventtools/schedule/recurrence"
	"github.com/eventtools/eventtools/schedule/storage"
	"github.com/eventtools/eventtools/schedule/storage/memory"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := memory.New()
	scheduler := schedule.New(store, schedule.Config{
		Logger:      logger,
		RefreshCron: "@hourly",
	})

	ctx := context.Background()
	now := time.Now().Truncate(time.Hour)

	// A weekly club night, bounded three months out.
	until := now.AddDate(0, 3, 0)
	clubNight := &storage.Generator{
		EventID:         "club-night",
		Start:           now.Add(24 * time.Hour),
		DurationMinutes: 180,
		Rule:            &recurrence.Rule{Name: "weekly", Frequency: recurrence.Weekly},
		RepeatUntil:     &until,
	}
	if err := scheduler.SaveGenerator(ctx, clubNight); err != nil {
		log.Fatalf("failed to save generator: %v", err)
	}

	// A boundless monthly meetup on whatever nth weekday the start falls on;
	// occurrences run out to the rolling horizon and the Refresher keeps
	// extending them.
	meetup := &storage.Generator{
		EventID:         "monthly-meetup",
		Start:           now.Add(48 * time.Hour),
		DurationMinutes: 120,
		Rule: &recurrence.Rule{
			Name:        "monthly on the nth weekday",
			Frequency:   recurrence.Monthly,
			ComplexRule: "FREQ=MONTHLY;BYDAY=%nthday%",
		},
	}
	if err := scheduler.SaveGenerator(ctx, meetup); err != nil {
		log.Fatalf("failed to save generator: %v", err)
	}

	// One manually booked extra show.
	extra := &storage.Occurrence{
		EventID:         "club-night",
		Start:           now.Add(72 * time.Hour),
		DurationMinutes: 180,
	}
	if err := scheduler.CreateOccurrence(ctx, extra); err != nil {
		log.Fatalf("failed to create occurrence: %v", err)
	}

	// Skip the second club night. The occurrence at that instant is detached
	// and future syncs never bring it back.
	skipped := clubNight.Start.AddDate(0, 0, 7)
	if err := scheduler.CreateExclusion(ctx, "club-night", skipped); err != nil {
		log.Fatalf("failed to create exclusion: %v", err)
	}

	// Sell a ticket against the third club night, then narrow the run: the
	// protected occurrence survives as a manual record.
	third, err := store.GetOccurrenceAt(ctx, "club-night", clubNight.Start.AddDate(0, 0, 14))
	if err != nil {
		log.Fatalf("failed to look up occurrence: %v", err)
	}
	store.Protect(third.ID)

	shortened := clubNight.Start.AddDate(0, 0, 7)
	clubNight.RepeatUntil = &shortened
	if err := scheduler.SaveGenerator(ctx, clubNight); err != nil {
		log.Fatalf("failed to narrow generator: %v", err)
	}

	// The Refresher keeps boundless generators topped up on a cron schedule.
	refresher, err := schedule.NewRefresher(scheduler)
	if err != nil {
		log.Fatalf("failed to create refresher: %v", err)
	}
	refresher.Start()
	defer refresher.Stop()

	printUpcoming(ctx, store, "club-night", now)
	printUpcoming(ctx, store, "monthly-meetup", now)
}

func printUpcoming(ctx context.Context, store *memory.Store, eventID string, now time.Time) {
	horizon := now.AddDate(0, 2, 0)
	occs, err := store.ListOccurrences(ctx, eventID, &storage.ListOptions{Start: &now, End: &horizon})
	if err != nil {
		log.Fatalf("failed to list occurrences: %v", err)
	}

	fmt.Printf("\n%s — next two months (%d occurrences):\n", eventID, len(occs))
	for _, o := range occs {
		origin := "generated"
		if o.IsManual() {
			origin = "manual"
		}
		fmt.Printf("  %s  %3dmin  %s\n", o.Start.Format("Mon 2006-01-02 15:04"), o.DurationMinutes, origin)
	}
}
