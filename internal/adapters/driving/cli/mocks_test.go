package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	unset       []string
	keys        map[domain.AIProvider]string
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
		keys:     make(map[domain.AIProvider]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if !strings.Contains(key, ".") {
		return domain.ErrInvalidInput
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Unset(key string) error {
	m.unset = append(m.unset, key)
	return nil
}

func (m *mockSettingsService) SetAPIKey(provider domain.AIProvider, apiKey string) error {
	m.keys[provider] = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

// mockStatusService serves a fixed status.
type mockStatusService struct {
	status    *driving.IndexStatus
	summaries map[string]*domain.Summary
	forgotten []string
}

func (m *mockStatusService) Status(_ context.Context) (*driving.IndexStatus, error) {
	if m.status == nil {
		return &driving.IndexStatus{}, nil
	}
	return m.status, nil
}

func (m *mockStatusService) Summary(_ context.Context, id string) (*domain.Summary, error) {
	if s, ok := m.summaries[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockStatusService) Forget(_ context.Context, id string) error {
	if _, ok := m.summaries[id]; !ok {
		return domain.ErrNotFound
	}
	m.forgotten = append(m.forgotten, id)
	return nil
}

// mockEntityService serves a fixed entity map.
type mockEntityService struct {
	entities map[string]*domain.Entity
}

func (m *mockEntityService) Build(_ context.Context) (*domain.EntityMap, error) {
	return &domain.EntityMap{Entities: m.entities}, nil
}

func (m *mockEntityService) Lookup(_ context.Context, name string) (*domain.Entity, error) {
	if e, ok := m.entities[strings.ToLower(name)]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockEntityService) Search(_ context.Context, query string) ([]*domain.Entity, error) {
	var out []*domain.Entity
	for key, e := range m.entities {
		if strings.Contains(key, strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockQueryEngine returns a fixed result and records the query.
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

func (m *mockQueryEngine) Models() []string { return []string{"openai:gpt-4o-mini"} }

// mockRunner reports the given outcomes.
type mockRunner struct {
	outcomes []domain.IngestOutcome
	err      error
	opts     driving.IngestOptions
	watched  bool
}

func (m *mockRunner) RunOnce(_ context.Context, opts driving.IngestOptions) (*domain.BatchReport, error) {
	m.opts = opts
	for _, o := range m.outcomes {
		if opts.OnOutcome != nil {
			opts.OnOutcome(o)
		}
	}
	return &domain.BatchReport{RunID: "run-1", Source: "filesystem", Outcomes: m.outcomes}, m.err
}

func (m *mockRunner) Watch(_ context.Context, triggers <-chan struct{}, opts driving.IngestOptions) error {
	m.opts = opts
	m.watched = true
	for range triggers {
	}
	return nil
}

// mockWatcher returns a closed trigger channel.
type mockWatcher struct{}

func (mockWatcher) Watch(_ context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	close(ch)
	return ch, nil
}

type testServices struct {
	settings *mockSettingsService
	status   *mockStatusService
	entities *mockEntityService
	query    *mockQueryEngine
	runner   *mockRunner
	watcher  *mockWatcher
	checks   []ProviderCheck
	closed   int
}

// setupTestServices installs mocks and returns a cleanup function.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		settings: newMockSettingsService(),
		status:   &mockStatusService{summaries: map[string]*domain.Summary{}},
		entities: &mockEntityService{entities: map[string]*domain.Entity{}},
		query:    &mockQueryEngine{result: &domain.QueryResult{NoContext: true}},
		runner:   &mockRunner{},
	}
	SetServices(Services{
		Settings: ts.settings,
		Status:   ts.status,
		Entities: ts.entities,
		OpenEngine: func(_ context.Context) (*Engine, error) {
			engine := &Engine{
				Query:  ts.query,
				Runner: ts.runner,
				Close: func() error {
					ts.closed++
					return nil
				},
			}
			if ts.watcher != nil {
				engine.Watcher = ts.watcher
			}
			return engine, nil
		},
		CheckProviders: func(_ context.Context) ([]ProviderCheck, error) {
			return ts.checks, nil
		},
	})
	return ts, func() {
		SetServices(Services{})
	}
}

// run executes the root command with args and returns its output.
// Flags are reset afterwards since cobra keeps their values between runs.
func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
