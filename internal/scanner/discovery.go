package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/DextroByt/Sentinel-AI/internal/feeds"
	"github.com/DextroByt/Sentinel-AI/internal/judge"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/internal/verify"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

// crisisPattern gates raw signals before they reach the judgment service.
var crisisPattern = regexp.MustCompile(`(?i)\b(disaster|accident|emergency|collapse|explosion|riot|earthquake|flood|tsunami|virus|outbreak|leak|bioweapon|conspiracy|coverup|censored|exposed|fake|hoax|rumor|forwarded|viral|whatsapp|audio|warning|alert|death|killed|lethal|radioactive|poison)\b`)

const defaultBatchCap = 60

const discoveryPrompt = `You are the triage stage of a crisis monitoring system.
Below is a digest of raw signals collected in the last discovery window.
Identify distinct candidate crises or viral misinformation threats worth tracking.

Severity buckets: 90-100 potentially lethal events, 70-89 dangerous or fast-spreading,
50-69 disruptive or localized. Ignore anything below 50.

Respond with ONLY a JSON object of this exact shape:
{"crises": [{"name": "...", "description": "...", "keywords": "space separated", "severity": 0-100, "location": "..."}]}

Signal digest:
%s`

const highSeverityThreshold = 75

// TaskSpawner hands background work to a supervised owner so failures are
// tracked instead of vanishing.
type TaskSpawner interface {
	Spawn(name string, fn func(ctx context.Context))
}

// DiscoveryStage pulls signals from feeds and the social probe, triages
// them through the judgment service, and registers new crises.
type DiscoveryStage struct {
	aggregator    feeds.Aggregator
	probe         *SocialProbe
	gateway       judge.Gateway
	model         string
	crises        store.CrisisStore
	timeline      store.TimelineStore
	notifications store.NotificationStore
	orchestrator  *verify.Orchestrator
	spawner       TaskSpawner
	batchCap      int
	logger        logging.Logger

	firstCycle bool
}

type DiscoveryConfig struct {
	Aggregator    feeds.Aggregator
	Probe         *SocialProbe
	Gateway       judge.Gateway
	Model         string
	Crises        store.CrisisStore
	Timeline      store.TimelineStore
	Notifications store.NotificationStore
	Orchestrator  *verify.Orchestrator
	Spawner       TaskSpawner
	BatchCap      int
	Logger        logging.Logger
}

func NewDiscoveryStage(cfg DiscoveryConfig) *DiscoveryStage {
	batchCap := cfg.BatchCap
	if batchCap <= 0 {
		batchCap = defaultBatchCap
	}
	return &DiscoveryStage{
		aggregator:    cfg.Aggregator,
		probe:         cfg.Probe,
		gateway:       cfg.Gateway,
		model:         cfg.Model,
		crises:        cfg.Crises,
		timeline:      cfg.Timeline,
		notifications: cfg.Notifications,
		orchestrator:  cfg.Orchestrator,
		spawner:       cfg.Spawner,
		batchCap:      batchCap,
		logger:        cfg.Logger,
		firstCycle:    true,
	}
}

// Run executes one discovery tick and returns the crises it created.
func (d *DiscoveryStage) Run(ctx context.Context) ([]store.Crisis, error) {
	signals := d.collect(ctx)
	batch := d.filter(signals)
	d.logger.WithFields(logging.Fields{
		"raw":      len(signals),
		"filtered": len(batch),
	}).Info("Discovery tick collected signals")
	if len(batch) == 0 {
		d.firstCycle = false
		return nil, nil
	}

	candidates, err := d.triage(ctx, batch)
	if err != nil {
		return nil, err
	}

	var created []store.Crisis
	for _, cand := range candidates {
		crisis, isNew := d.register(ctx, cand)
		if isNew {
			created = append(created, crisis)
		}
	}
	d.notify(ctx, created)
	d.firstCycle = false
	discoveredCrisesTotal.Add(float64(len(created)))
	return created, nil
}

// collect pulls feeds and the social probe concurrently.
func (d *DiscoveryStage) collect(ctx context.Context) []feeds.Signal {
	var mu sync.Mutex
	var signals []feeds.Signal
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		found := d.aggregator.FetchAll(ctx)
		mu.Lock()
		signals = append(signals, found...)
		mu.Unlock()
	}()
	if d.probe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found := d.probe.FetchAll(ctx)
			mu.Lock()
			signals = append(signals, found...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return signals
}

// filter keeps keyword-relevant signals, dedups by URL, and caps the
// batch to bound judgment-service cost.
func (d *DiscoveryStage) filter(signals []feeds.Signal) []feeds.Signal {
	seen := make(map[string]bool)
	var batch []feeds.Signal
	for _, sig := range signals {
		if !crisisPattern.MatchString(sig.Title) && !crisisPattern.MatchString(sig.Body) {
			continue
		}
		if sig.URL == "" || seen[sig.URL] {
			continue
		}
		seen[sig.URL] = true
		batch = append(batch, sig)
		if len(batch) == d.batchCap {
			break
		}
	}
	return batch
}

type candidate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	Severity    int    `json:"severity"`
	Location    string `json:"location"`
}

func (d *DiscoveryStage) triage(ctx context.Context, batch []feeds.Signal) ([]candidate, error) {
	var digest strings.Builder
	for _, sig := range batch {
		fmt.Fprintf(&digest, "- [%s/%s] %s: %s (%s)\n", sig.SourceKind, sig.SourceName, sig.Title, sig.Body, sig.URL)
	}

	raw, err := d.gateway.Generate(ctx, d.model, fmt.Sprintf(discoveryPrompt, digest.String()), judge.GenerateOptions{JSONOutput: true})
	if err != nil {
		return nil, fmt.Errorf("discovery triage: %w", err)
	}
	var payload struct {
		Crises []candidate `json:"crises"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("discovery triage returned malformed JSON: %w", err)
	}

	valid := payload.Crises[:0]
	for _, c := range payload.Crises {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.Severity = store.ClampSeverity(c.Severity)
		valid = append(valid, c)
	}
	return valid, nil
}

// register creates the crisis unless a fuzzy name match already tracks
// it, seeds the timeline, and hands initial verification to the
// supervised task set.
func (d *DiscoveryStage) register(ctx context.Context, cand candidate) (store.Crisis, bool) {
	if existing, err := d.crises.FindByFuzzyName(ctx, cand.Name); err != nil {
		d.logger.WithError(err).WithFields(logging.Fields{"name": cand.Name}).Warn("Fuzzy lookup failed, skipping candidate")
		return store.Crisis{}, false
	} else if existing != nil {
		d.logger.WithFields(logging.Fields{"name": cand.Name, "existing": existing.Name}).Debug("Candidate already tracked")
		return *existing, false
	}

	crisis, err := d.crises.Create(ctx, store.Crisis{
		Name:        cand.Name,
		Description: cand.Description,
		Keywords:    cand.Keywords,
		Severity:    cand.Severity,
		Location:    cand.Location,
	})
	if err != nil {
		d.logger.WithError(err).WithFields(logging.Fields{"name": cand.Name}).Error("Failed to create crisis")
		return store.Crisis{}, false
	}

	// The seed's claim text must differ from the claim the background
	// verification runs, or the orchestrator's dedup lookup finds the seed
	// row and skips the initial verification entirely.
	if _, err := d.timeline.Create(ctx, store.TimelineItem{
		CrisisID:   &crisis.ID,
		ClaimText:  "Signal Detected: " + crisis.Name,
		Summary:    "Newly discovered, verification pending.",
		Status:     store.StatusUnconfirmed,
		Location:   crisis.Location,
		Confidence: 10,
	}); err != nil {
		d.logger.WithError(err).WithFields(logging.Fields{"crisis": crisis.Name}).Warn("Failed to seed timeline")
	}

	if d.spawner != nil && d.orchestrator != nil {
		initialClaim := crisis.Description
		if initialClaim == "" {
			initialClaim = crisis.Name
		}
		name := "initial-verify:" + crisis.Name
		d.spawner.Spawn(name, func(taskCtx context.Context) {
			if err := d.orchestrator.VerifyAndRollup(taskCtx, crisis, []verify.Claim{{Text: initialClaim, Location: crisis.Location}}); err != nil {
				d.logger.WithError(err).WithFields(logging.Fields{"crisis": crisis.Name}).Warn("Initial verification failed")
			}
		})
	}

	d.logger.WithFields(logging.Fields{
		"crisis":   crisis.Name,
		"severity": crisis.Severity,
		"location": crisis.Location,
	}).Info("New crisis tracked")
	return crisis, true
}

// notify emits alerts for new high-severity crises. The very first cycle
// collapses them into one digest so a fresh deployment does not flood the
// notification feed; later cycles alert per crisis.
func (d *DiscoveryStage) notify(ctx context.Context, created []store.Crisis) {
	var urgent []store.Crisis
	for _, crisis := range created {
		if crisis.Severity >= highSeverityThreshold {
			urgent = append(urgent, crisis)
		}
	}
	if len(urgent) == 0 {
		return
	}

	if d.firstCycle {
		sort.Slice(urgent, func(i, j int) bool { return urgent[i].Severity > urgent[j].Severity })
		top := urgent
		if len(top) > 3 {
			top = top[:3]
		}
		names := make([]string, 0, len(top))
		for _, crisis := range top {
			names = append(names, fmt.Sprintf("%s (severity %d)", crisis.Name, crisis.Severity))
		}
		content := fmt.Sprintf("Monitoring started: tracking %d high-severity situations. Top: %s", len(urgent), strings.Join(names, "; "))
		if _, err := d.notifications.Create(ctx, store.Notification{Content: content, Type: "DIGEST"}); err != nil {
			d.logger.WithError(err).Warn("Failed to create digest notification")
		}
		notificationsTotal.WithLabelValues("DIGEST").Inc()
		return
	}

	for _, crisis := range urgent {
		crisis := crisis
		content := fmt.Sprintf("New high-severity situation: %s (severity %d, %s)", crisis.Name, crisis.Severity, crisis.Location)
		if _, err := d.notifications.Create(ctx, store.Notification{Content: content, Type: "ALERT", CrisisID: &crisis.ID}); err != nil {
			d.logger.WithError(err).WithFields(logging.Fields{"crisis": crisis.Name}).Warn("Failed to create alert notification")
			continue
		}
		notificationsTotal.WithLabelValues("ALERT").Inc()
	}
}
