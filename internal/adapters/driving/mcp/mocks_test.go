package mcp

import (
	"context"
	"strings"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

// mockQueryEngine is a mock implementation of driving.QueryEngine.
type mockQueryEngine struct {
	result   *domain.QueryResult
	err      error
	question string
	opts     domain.QueryOptions
}

func (m *mockQueryEngine) Answer(_ context.Context, question string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	m.question = question
	m.opts = opts
	return m.result, m.err
}

func (m *mockQueryEngine) Models() []string {
	return []string{"openai:gpt-4o-mini"}
}

// mockEntityService is a mock implementation of driving.EntityService.
type mockEntityService struct {
	entities map[string]*domain.Entity
	err      error
}

func (m *mockEntityService) Build(_ context.Context) (*domain.EntityMap, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.EntityMap{Entities: m.entities}, nil
}

func (m *mockEntityService) Lookup(_ context.Context, name string) (*domain.Entity, error) {
	if e, ok := m.entities[strings.ToLower(name)]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockEntityService) Search(_ context.Context, query string) ([]*domain.Entity, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Entity
	for key, e := range m.entities {
		if strings.Contains(key, strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	status    *driving.IndexStatus
	summaries map[string]*domain.Summary
	err       error
}

func (m *mockStatusService) Status(_ context.Context) (*driving.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockStatusService) Summary(_ context.Context, id string) (*domain.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.summaries[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockStatusService) Forget(_ context.Context, _ string) error {
	return m.err
}

var (
	_ driving.QueryEngine   = (*mockQueryEngine)(nil)
	_ driving.EntityService = (*mockEntityService)(nil)
	_ driving.StatusService = (*mockStatusService)(nil)
)
