// memory based implementation for testing purposes
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventtools/eventtools/schedule/storage"
)

// Store implements storage.Storage using in-memory maps. It enforces the
// (event, start) uniqueness constraints and models external delete
// protection through Protect/Unprotect.
type Store struct {
	mu         sync.RWMutex
	generators map[uuid.UUID]*storage.Generator
	occs       map[uuid.UUID]*storage.Occurrence
	occIndex   map[string]uuid.UUID // key: eventID/startUnixNano
	excls      map[uuid.UUID]*storage.Exclusion
	exclIndex  map[string]uuid.UUID // key: eventID/startUnixNano
	protected  map[uuid.UUID]bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		generators: make(map[uuid.UUID]*storage.Generator),
		occs:       make(map[uuid.UUID]*storage.Occurrence),
		occIndex:   make(map[string]uuid.UUID),
		excls:      make(map[uuid.UUID]*storage.Exclusion),
		exclIndex:  make(map[string]uuid.UUID),
		protected:  make(map[uuid.UUID]bool),
	}
}

func startKey(eventID string, start time.Time) string {
	return fmt.Sprintf("%s/%d", eventID, start.UnixNano())
}

// Protect marks an occurrence as referenced externally with delete
// protection, like a ticket sold against it. DeleteOccurrence then returns
// ErrProtected for it.
func (s *Store) Protect(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected[id] = true
}

// Unprotect removes delete protection from an occurrence.
func (s *Store) Unprotect(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.protected, id)
}

// Generator operations

func (s *Store) CreateGenerator(_ context.Context, g *storage.Generator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.generators[g.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "generator already exists",
		}
	}

	cp := *g
	s.generators[g.ID] = &cp
	return nil
}

func (s *Store) UpdateGenerator(_ context.Context, g *storage.Generator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.generators[g.ID]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "generator not found",
		}
	}

	cp := *g
	s.generators[g.ID] = &cp
	return nil
}

func (s *Store) GetGenerator(_ context.Context, id uuid.UUID) (*storage.Generator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.generators[id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "generator not found",
		}
	}

	cp := *g
	return &cp, nil
}

func (s *Store) ListGenerators(_ context.Context, eventID string) ([]*storage.Generator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Generator
	for _, g := range s.generators {
		if g.EventID == eventID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) ListBoundlessGenerators(_ context.Context) ([]*storage.Generator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Generator
	for _, g := range s.generators {
		if g.Rule != nil && g.RepeatUntil == nil {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) DeleteGenerator(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.generators[id]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "generator not found",
		}
	}

	delete(s.generators, id)
	return nil
}

// Occurrence operations

func (s *Store) CreateOccurrence(_ context.Context, o *storage.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := startKey(o.EventID, o.Start)
	if _, taken := s.occIndex[key]; taken {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "occurrence already exists at this start",
		}
	}
	if _, exists := s.occs[o.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "occurrence already exists",
		}
	}

	cp := *o
	s.occs[o.ID] = &cp
	s.occIndex[key] = o.ID
	return nil
}

func (s *Store) UpdateOccurrence(_ context.Context, o *storage.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.occs[o.ID]
	if !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "occurrence not found",
		}
	}

	newKey := startKey(o.EventID, o.Start)
	if holder, taken := s.occIndex[newKey]; taken && holder != o.ID {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "occurrence already exists at this start",
		}
	}

	delete(s.occIndex, startKey(old.EventID, old.Start))
	cp := *o
	s.occs[o.ID] = &cp
	s.occIndex[newKey] = o.ID
	return nil
}

func (s *Store) GetOccurrenceAt(_ context.Context, eventID string, start time.Time) (*storage.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.occIndex[startKey(eventID, start)]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "no occurrence at this start",
		}
	}

	cp := *s.occs[id]
	return &cp, nil
}

func (s *Store) ListOccurrences(_ context.Context, eventID string, opts *storage.ListOptions) ([]*storage.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Occurrence
	for _, o := range s.occs {
		if o.EventID != eventID {
			continue
		}
		if opts != nil {
			if opts.GeneratedBy != nil &&
				(o.GeneratedBy == nil || *o.GeneratedBy != *opts.GeneratedBy) {
				continue
			}
			if opts.ManualOnly && o.GeneratedBy != nil {
				continue
			}
			if opts.Start != nil && o.Start.Before(*opts.Start) {
				continue
			}
			if opts.End != nil && o.Start.After(*opts.End) {
				continue
			}
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) DeleteOccurrence(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, exists := s.occs[id]
	if !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "occurrence not found",
		}
	}
	if s.protected[id] {
		return &storage.Error{
			Type:    storage.ErrProtected,
			Message: "occurrence is referenced with delete protection",
		}
	}

	delete(s.occIndex, startKey(o.EventID, o.Start))
	delete(s.occs, id)
	return nil
}

// Exclusion operations

func (s *Store) CreateExclusion(_ context.Context, x *storage.Exclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := startKey(x.EventID, x.Start)
	if _, taken := s.exclIndex[key]; taken {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "exclusion already exists at this start",
		}
	}

	cp := *x
	s.excls[x.ID] = &cp
	s.exclIndex[key] = x.ID
	return nil
}

func (s *Store) ListExclusions(_ context.Context, eventID string) ([]*storage.Exclusion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Exclusion
	for _, x := range s.excls {
		if x.EventID == eventID {
			cp := *x
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) DeleteExclusion(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, exists := s.excls[id]
	if !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "exclusion not found",
		}
	}

	delete(s.exclIndex, startKey(x.EventID, x.Start))
	delete(s.excls, id)
	return nil
}
