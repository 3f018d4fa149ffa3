package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DextroByt/Sentinel-AI/internal/agents"
	"github.com/DextroByt/Sentinel-AI/internal/feeds"
	"github.com/DextroByt/Sentinel-AI/internal/judge"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

// fakeGateway returns scripted responses in order. Discovery spawns
// verification into background tasks, so calls may arrive from more
// than one goroutine.
type fakeGateway struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (f *fakeGateway) Generate(ctx context.Context, model, prompt string, opts judge.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fakeGateway: no response scripted")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

type memCrises struct {
	mu            sync.Mutex
	crises        []store.Crisis
	kept          []uuid.UUID
	pruned        bool
	listErr       error
	verdictStatus string
}

func (m *memCrises) Create(ctx context.Context, c store.Crisis) (store.Crisis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.Severity = store.ClampSeverity(c.Severity)
	c.CreatedAt = time.Now()
	m.crises = append(m.crises, c)
	return c, nil
}

func (m *memCrises) Get(ctx context.Context, id uuid.UUID) (*store.Crisis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.crises {
		if m.crises[i].ID == id {
			found := m.crises[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memCrises) List(ctx context.Context, limit int) ([]store.Crisis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]store.Crisis(nil), m.crises...), nil
}

func (m *memCrises) FindByFuzzyName(ctx context.Context, name string) (*store.Crisis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.crises {
		if m.crises[i].Name == name {
			found := m.crises[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memCrises) UpdateVerdict(ctx context.Context, id uuid.UUID, status, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdictStatus = status
	for i := range m.crises {
		if m.crises[i].ID == id {
			m.crises[i].VerdictStatus = status
			m.crises[i].VerdictSummary = summary
		}
	}
	return nil
}

func (m *memCrises) DeleteAllExcept(ctx context.Context, keep []uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kept = append([]uuid.UUID(nil), keep...)
	m.pruned = true
	keepSet := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	var survivors []store.Crisis
	var deleted int64
	for _, c := range m.crises {
		if keepSet[c.ID] {
			survivors = append(survivors, c)
		} else {
			deleted++
		}
	}
	m.crises = survivors
	return deleted, nil
}

func (m *memCrises) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

type memTimeline struct {
	mu    sync.Mutex
	items []store.TimelineItem
}

func (m *memTimeline) Create(ctx context.Context, item store.TimelineItem) (store.TimelineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	m.items = append(m.items, item)
	return item, nil
}

func (m *memTimeline) GetByClaimText(ctx context.Context, crisisID *uuid.UUID, claimText string) (*store.TimelineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		item := m.items[i]
		if item.ClaimText != claimText {
			continue
		}
		if crisisID == nil {
			if item.CrisisID == nil {
				return &item, nil
			}
			continue
		}
		if item.CrisisID != nil && *item.CrisisID == *crisisID {
			return &item, nil
		}
	}
	return nil, nil
}

func (m *memTimeline) ListForCrisis(ctx context.Context, crisisID uuid.UUID) ([]store.TimelineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.TimelineItem
	for _, item := range m.items {
		if item.CrisisID != nil && *item.CrisisID == crisisID {
			out = append(out, item)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows []store.Notification
}

func (m *memNotifications) Create(ctx context.Context, n store.Notification) (store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	m.rows = append(m.rows, n)
	return n, nil
}

func (m *memNotifications) GetLatest(ctx context.Context) (*store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil, nil
	}
	latest := m.rows[len(m.rows)-1]
	return &latest, nil
}

// countingAgent records how often evidence gathering ran.
type countingAgent struct {
	mu    sync.Mutex
	calls int
}

func (a *countingAgent) Kind() agents.EvidenceKind { return agents.KindOfficial }

func (a *countingAgent) Gather(ctx context.Context, claimText string) []agents.EvidenceItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return []agents.EvidenceItem{{Kind: agents.KindOfficial, Title: "gov update", URL: "https://gov.example/1"}}
}

func (a *countingAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// staticAggregator returns a fixed signal batch.
type staticAggregator struct {
	signals []feeds.Signal
}

func (a *staticAggregator) FetchAll(ctx context.Context) []feeds.Signal { return a.signals }

// staticSearch returns fixed hits for every query.
type staticSearch struct {
	hits []search.Result
	err  error
}

func (s *staticSearch) Text(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	return s.hits, s.err
}

func (s *staticSearch) News(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	return s.hits, s.err
}
