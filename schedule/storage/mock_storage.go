package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateGenerator(ctx context.Context, g *Generator) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockStorage) UpdateGenerator(ctx context.Context, g *Generator) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockStorage) GetGenerator(ctx context.Context, id uuid.UUID) (*Generator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Generator), args.Error(1)
}

func (m *MockStorage) ListGenerators(ctx context.Context, eventID string) ([]*Generator, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Generator), args.Error(1)
}

func (m *MockStorage) ListBoundlessGenerators(ctx context.Context) ([]*Generator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Generator), args.Error(1)
}

func (m *MockStorage) DeleteGenerator(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateOccurrence(ctx context.Context, o *Occurrence) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockStorage) UpdateOccurrence(ctx context.Context, o *Occurrence) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockStorage) GetOccurrenceAt(ctx context.Context, eventID string, start time.Time) (*Occurrence, error) {
	args := m.Called(ctx, eventID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Occurrence), args.Error(1)
}

func (m *MockStorage) ListOccurrences(ctx context.Context, eventID string, opts *ListOptions) ([]*Occurrence, error) {
	args := m.Called(ctx, eventID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Occurrence), args.Error(1)
}

func (m *MockStorage) DeleteOccurrence(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateExclusion(ctx context.Context, x *Exclusion) error {
	args := m.Called(ctx, x)
	return args.Error(0)
}

func (m *MockStorage) ListExclusions(ctx context.Context, eventID string) ([]*Exclusion, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Exclusion), args.Error(1)
}

func (m *MockStorage) DeleteExclusion(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
