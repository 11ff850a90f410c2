package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/juris/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// testRetry never sleeps and gives up after two attempts.
func testRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Multiplier:  2,
		Timeout:     5 * time.Second,
		sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

// mockSource is an in-memory document source.
type mockSource struct {
	mu       sync.Mutex
	order    []string
	contents map[string]string
	listErr  error
	fetches  map[string]int
}

var _ driven.SourceConnector = (*mockSource)(nil)

func newMockSource() *mockSource {
	return &mockSource{contents: make(map[string]string), fetches: make(map[string]int)}
}

func (m *mockSource) put(id, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contents[id]; !ok {
		m.order = append(m.order, id)
	}
	m.contents[id] = content
}

func (m *mockSource) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contents, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *mockSource) fetchCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[id]
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) List(_ context.Context) ([]domain.SourceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	entries := make([]domain.SourceEntry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, domain.SourceEntry{
			ID:          id,
			Name:        id + ".pdf",
			Path:        "dossier/" + id + ".pdf",
			MimeType:    "application/pdf",
			ContentHash: domain.HashContent(m.contents[id]),
			Size:        int64(len(m.contents[id])),
		})
	}
	return entries, nil
}

func (m *mockSource) Fetch(_ context.Context, entry domain.SourceEntry) (*domain.SourceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[entry.ID]++
	content, ok := m.contents[entry.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.SourceDocument{SourceEntry: entry, Content: []byte(content)}, nil
}

// mockOCR splits the payload into pages on form feeds.
type mockOCR struct {
	mu    sync.Mutex
	fail  map[string]error
	calls int

	// held documents block in Extract until their channel is closed;
	// entered receives their ID first.
	held    map[string]chan struct{}
	entered chan string
}

var _ driven.OCRAdapter = (*mockOCR)(nil)

func newMockOCR() *mockOCR {
	return &mockOCR{
		fail:    make(map[string]error),
		held:    make(map[string]chan struct{}),
		entered: make(chan string, 8),
	}
}

// hold makes Extract block on id and returns the release function.
func (m *mockOCR) hold(id string) func() {
	release := make(chan struct{})
	m.mu.Lock()
	m.held[id] = release
	m.mu.Unlock()
	return func() { close(release) }
}

func (m *mockOCR) Name() string { return "mock-ocr" }

func (m *mockOCR) Extract(_ context.Context, doc *domain.SourceDocument) ([]string, error) {
	m.mu.Lock()
	m.calls++
	err := m.fail[doc.ID]
	held := m.held[doc.ID]
	m.mu.Unlock()

	if held != nil {
		m.entered <- doc.ID
		<-held
	}
	if err != nil {
		return nil, err
	}
	return strings.Split(string(doc.Content), "\f"), nil
}

// failingSummaryStore fails every Save.
type failingSummaryStore struct {
	*memory.SummaryStore
	err error
}

func (s *failingSummaryStore) Save(context.Context, domain.Summary) error { return s.err }

// mockLLM answers through a replaceable function and counts calls.
type mockLLM struct {
	name     string
	calls    atomic.Int32
	complete func(prompt string, hint driven.SchemaHint) (string, error)
}

var _ driven.LLMProvider = (*mockLLM)(nil)

const validSummaryJSON = `{"parties":["M. Jean Durand","SARL Dupont"],` +
	`"essential_facts":"M. Jean Durand a signé le contrat. Le virement a eu lieu.",` +
	`"inconsistencies":"","sourcing":{}}`

func newSummaryLLM() *mockLLM {
	return &mockLLM{
		name: "mock-llm",
		complete: func(string, driven.SchemaHint) (string, error) {
			return validSummaryJSON, nil
		},
	}
}

func (m *mockLLM) Complete(_ context.Context, prompt string, hint driven.SchemaHint) (string, error) {
	m.calls.Add(1)
	return m.complete(prompt, hint)
}

func (m *mockLLM) ModelName() string            { return m.name }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// keywordEmbedding embeds texts as keyword counts plus a small bias, so
// texts sharing keywords are close.
type keywordEmbedding struct {
	model    string
	keywords []string
	calls    atomic.Int32
	fail     error
}

var _ driven.EmbeddingProvider = (*keywordEmbedding)(nil)

func newKeywordEmbedding() *keywordEmbedding {
	return &keywordEmbedding{
		model:    "mock-embed",
		keywords: []string{"durand", "virement", "expertise", "contrat"},
	}
}

func (k *keywordEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	k.calls.Add(1)
	if k.fail != nil {
		return nil, k.fail
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float32, len(k.keywords)+1)
		for j, kw := range k.keywords {
			v[j] = float32(strings.Count(lower, kw))
		}
		v[len(k.keywords)] = 0.1
		out[i] = v
	}
	return out, nil
}

func (k *keywordEmbedding) Dimensions() int              { return len(k.keywords) + 1 }
func (k *keywordEmbedding) ModelName() string            { return k.model }
func (k *keywordEmbedding) Ping(_ context.Context) error { return nil }
func (k *keywordEmbedding) Close() error                 { return nil }

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("prompt not found")
}

func (m *mockPromptStore) Reload() {}
