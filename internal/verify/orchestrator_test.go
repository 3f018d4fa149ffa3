package verify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DextroByt/Sentinel-AI/internal/agents"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

type memTimeline struct {
	mu    sync.Mutex
	items []store.TimelineItem
}

func timelineKeyMatch(item store.TimelineItem, crisisID *uuid.UUID, claimText string) bool {
	if item.ClaimText != claimText {
		return false
	}
	if crisisID == nil {
		return item.CrisisID == nil
	}
	return item.CrisisID != nil && *item.CrisisID == *crisisID
}

func (m *memTimeline) Create(ctx context.Context, item store.TimelineItem) (store.TimelineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	item.Timestamp = time.Now()
	m.items = append(m.items, item)
	return item, nil
}

func (m *memTimeline) GetByClaimText(ctx context.Context, crisisID *uuid.UUID, claimText string) (*store.TimelineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if timelineKeyMatch(m.items[i], crisisID, claimText) {
			found := m.items[i]
			return &found, nil
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

type memCrises struct {
	mu            sync.Mutex
	verdictStatus string
	verdictSum    string
}

func (m *memCrises) Create(ctx context.Context, c store.Crisis) (store.Crisis, error) {
	c.ID = uuid.New()
	return c, nil
}
func (m *memCrises) Get(ctx context.Context, id uuid.UUID) (*store.Crisis, error) { return nil, nil }
func (m *memCrises) List(ctx context.Context, limit int) ([]store.Crisis, error) { return nil, nil }
func (m *memCrises) FindByFuzzyName(ctx context.Context, name string) (*store.Crisis, error) {
	return nil, nil
}
func (m *memCrises) UpdateVerdict(ctx context.Context, id uuid.UUID, status, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdictStatus, m.verdictSum = status, summary
	return nil
}
func (m *memCrises) DeleteAllExcept(ctx context.Context, keep []uuid.UUID) (int64, error) {
	return 0, nil
}
func (m *memCrises) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

type memAnalyses struct {
	mu       sync.Mutex
	statuses []store.AnalysisStatus
	verdict  string
}

func (m *memAnalyses) Create(ctx context.Context, queryText string) (store.Analysis, error) {
	return store.Analysis{ID: uuid.New(), QueryText: queryText, Status: store.AnalysisPending}, nil
}
func (m *memAnalyses) Get(ctx context.Context, id uuid.UUID) (*store.Analysis, error) {
	return nil, nil
}
func (m *memAnalyses) SetStatus(ctx context.Context, id uuid.UUID, status store.AnalysisStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}
func (m *memAnalyses) SetVerdict(ctx context.Context, id uuid.UUID, verdictStatus, summary string, sources []store.Source, confidence int, reasoning string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, store.AnalysisCompleted)
	m.verdict = verdictStatus
	return nil
}

// recordingAgent counts Gather calls and returns scripted items.
type recordingAgent struct {
	kind  agents.EvidenceKind
	items []agents.EvidenceItem

	mu    sync.Mutex
	calls int
}

func (a *recordingAgent) Kind() agents.EvidenceKind { return a.kind }

func (a *recordingAgent) Gather(ctx context.Context, claimText string) []agents.EvidenceItem {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.items
}

func (a *recordingAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newTestOrchestrator(gw *fakeGateway, timeline *memTimeline, crises *memCrises, analyses *memAnalyses, agentList ...agents.Agent) *Orchestrator {
	return NewOrchestrator(OrchestratorConfig{
		Agents:      agentList,
		Synthesizer: NewSynthesizer(gw, "test-model"),
		Timeline:    timeline,
		Crises:      crises,
		Analyses:    analyses,
		Logger:      logging.NewLogger(),
	})
}

const verifiedVerdict = `{"status": "VERIFIED", "summary": "Confirmed.", "confidence": 90, "reasoning": "ok", "sources": []}`

func TestVerifyClaimPersistsVerdict(t *testing.T) {
	gw := &fakeGateway{responses: []string{verifiedVerdict}}
	timeline := &memTimeline{}
	official := &recordingAgent{kind: agents.KindOfficial}
	media := &recordingAgent{kind: agents.KindMedia}
	debunk := &recordingAgent{kind: agents.KindDebunk}
	orch := newTestOrchestrator(gw, timeline, &memCrises{}, &memAnalyses{}, official, media, debunk)

	crisisID := uuid.New()
	item, err := orch.VerifyClaim(context.Background(), &crisisID, Claim{Text: "dam burst in city", Location: "City"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Status != store.StatusVerified || item.Confidence != 90 {
		t.Fatalf("verdict not persisted: %+v", item)
	}
	if item.Location != "City" {
		t.Fatalf("claim location lost: %+v", item)
	}
	for _, agent := range []*recordingAgent{official, media, debunk} {
		if agent.callCount() != 1 {
			t.Fatalf("agent %s called %d times, want 1", agent.Kind(), agent.callCount())
		}
	}
}

func TestVerifyClaimIdempotent(t *testing.T) {
	gw := &fakeGateway{responses: []string{verifiedVerdict}}
	timeline := &memTimeline{}
	official := &recordingAgent{kind: agents.KindOfficial}
	orch := newTestOrchestrator(gw, timeline, &memCrises{}, &memAnalyses{}, official)

	crisisID := uuid.New()
	claim := Claim{Text: "dam burst in city"}
	first, err := orch.VerifyClaim(context.Background(), &crisisID, claim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := orch.VerifyClaim(context.Background(), &crisisID, claim)
	if err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("repeat verification created a new row")
	}
	if official.callCount() != 1 {
		t.Fatalf("agents re-ran on duplicate claim: %d calls", official.callCount())
	}
	if len(gw.prompts) != 1 {
		t.Fatalf("synthesis re-ran on duplicate claim: %d prompts", len(gw.prompts))
	}
}

func TestVerifyClaimEvidenceOrderFollowsRegistration(t *testing.T) {
	gw := &fakeGateway{responses: []string{verifiedVerdict}}
	official := &recordingAgent{kind: agents.KindOfficial, items: []agents.EvidenceItem{{Kind: agents.KindOfficial, Title: "gov says"}}}
	media := &recordingAgent{kind: agents.KindMedia, items: []agents.EvidenceItem{{Kind: agents.KindMedia, Title: "press says"}}}
	debunk := &recordingAgent{kind: agents.KindDebunk, items: []agents.EvidenceItem{{Kind: agents.KindDebunk, Title: "factcheck says"}}}
	orch := newTestOrchestrator(gw, &memTimeline{}, &memCrises{}, &memAnalyses{}, official, media, debunk)

	crisisID := uuid.New()
	if _, err := orch.VerifyClaim(context.Background(), &crisisID, Claim{Text: "dam burst in city"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := gw.prompts[0]
	gov := indexOf(t, prompt, "gov says")
	press := indexOf(t, prompt, "press says")
	fc := indexOf(t, prompt, "factcheck says")
	if !(gov < press && press < fc) {
		t.Fatalf("evidence out of order in synthesis prompt:\n%s", prompt)
	}
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		t.Fatalf("%q missing from prompt:\n%s", needle, haystack)
	}
	return idx
}

func TestVerifyAndRollupUpdatesCrisisVerdict(t *testing.T) {
	gw := &fakeGateway{responses: []string{
		verifiedVerdict,
		`{"status": "VERIFIED", "summary": "Flooding confirmed."}`,
	}}
	crises := &memCrises{}
	orch := newTestOrchestrator(gw, &memTimeline{}, crises, &memAnalyses{}, &recordingAgent{kind: agents.KindOfficial})

	crisis := store.Crisis{ID: uuid.New(), Name: "City Flood"}
	err := orch.VerifyAndRollup(context.Background(), crisis, []Claim{{Text: "dam burst in city"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crises.verdictStatus != string(store.StatusVerified) {
		t.Fatalf("crisis verdict not updated: %q", crises.verdictStatus)
	}
}

func TestVerifyAndRollupRefreshesVerdictWhenNothingVerified(t *testing.T) {
	gw := &fakeGateway{err: errors.New("judgment down")}
	crises := &memCrises{}
	orch := newTestOrchestrator(gw, &memTimeline{}, crises, &memAnalyses{}, &recordingAgent{kind: agents.KindOfficial})

	crisis := store.Crisis{ID: uuid.New(), Name: "City Flood"}
	if err := orch.VerifyAndRollup(context.Background(), crisis, []Claim{{Text: "dam burst in city"}}); err != nil {
		t.Fatalf("claim failures must not fail the batch: %v", err)
	}
	// The rollup still runs over the (empty) timeline so the crisis is
	// never left on a stale verdict.
	if crises.verdictStatus != string(store.StatusUnconfirmed) {
		t.Fatalf("verdict not refreshed after an empty batch: %q", crises.verdictStatus)
	}
}

func TestVerifyAndRollupRunsRollupWithNoClaims(t *testing.T) {
	gw := &fakeGateway{responses: []string{
		`{"status": "VERIFIED", "summary": "Earlier reports hold."}`,
	}}
	timeline := &memTimeline{}
	crises := &memCrises{}
	orch := newTestOrchestrator(gw, timeline, crises, &memAnalyses{}, &recordingAgent{kind: agents.KindOfficial})

	crisis := store.Crisis{ID: uuid.New(), Name: "City Flood"}
	if _, err := timeline.Create(context.Background(), store.TimelineItem{
		CrisisID:  &crisis.ID,
		ClaimText: "dam burst in city",
		Status:    store.StatusVerified,
	}); err != nil {
		t.Fatalf("seed timeline: %v", err)
	}

	if err := orch.VerifyAndRollup(context.Background(), crisis, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crises.verdictStatus != string(store.StatusVerified) {
		t.Fatalf("rollup skipped on an empty claim batch: %q", crises.verdictStatus)
	}
}

func TestRunAdhocMarksFailedOnError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("judgment down")}
	analyses := &memAnalyses{}
	orch := newTestOrchestrator(gw, &memTimeline{}, &memCrises{}, analyses, &recordingAgent{kind: agents.KindOfficial})

	orch.RunAdhoc(context.Background(), uuid.New(), "is the dam burst video real")

	if len(analyses.statuses) != 2 ||
		analyses.statuses[0] != store.AnalysisProcessing ||
		analyses.statuses[1] != store.AnalysisFailed {
		t.Fatalf("expected PROCESSING then FAILED, got %v", analyses.statuses)
	}
}

func TestRunAdhocCompletesAndCaches(t *testing.T) {
	gw := &fakeGateway{responses: []string{verifiedVerdict}}
	timeline := &memTimeline{}
	analyses := &memAnalyses{}
	orch := newTestOrchestrator(gw, timeline, &memCrises{}, analyses, &recordingAgent{kind: agents.KindOfficial})

	orch.RunAdhoc(context.Background(), uuid.New(), "is the dam burst video real")

	if analyses.verdict != string(store.StatusVerified) {
		t.Fatalf("verdict not recorded: %q", analyses.verdict)
	}
	cached, err := timeline.GetByClaimText(context.Background(), nil, "is the dam burst video real")
	if err != nil || cached == nil {
		t.Fatalf("ad-hoc result not cached on timeline: %v %v", cached, err)
	}

	// Same query again must reuse the cache, not the judgment service.
	orch.RunAdhoc(context.Background(), uuid.New(), "is the dam burst video real")
	if len(gw.prompts) != 1 {
		t.Fatalf("cached query re-hit the judgment service: %d prompts", len(gw.prompts))
	}
}
