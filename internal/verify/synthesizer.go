package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DextroByt/Sentinel-AI/internal/agents"
	"github.com/DextroByt/Sentinel-AI/internal/judge"
	"github.com/DextroByt/Sentinel-AI/internal/store"
)

// Verdict is the structured outcome of synthesizing evidence for one claim.
type Verdict struct {
	Status     store.VerificationStatus `json:"status"`
	Summary    string                   `json:"summary"`
	Confidence int                      `json:"confidence"`
	Reasoning  string                   `json:"reasoning"`
	Sources    []store.Source           `json:"sources"`
}

const verdictPrompt = `You are the final synthesis judge in a misinformation verification pipeline.
Weigh the evidence below and deliver a verdict on the claim.

Claim: %q

Evidence, grouped by channel (OFFICIAL government sources, MEDIA coverage, DEBUNK fact-checks):
%s

Guidance:
- An explicit fact-check debunk outweighs ambiguous media coverage.
- Official confirmation outweighs absence of media coverage.
- When channels conflict or all channels are empty sentinels, stay UNCONFIRMED with low confidence.

Respond with ONLY a JSON object of this exact shape:
{"status": "VERIFIED|DEBUNKED|UNCONFIRMED", "summary": "...", "confidence": 0-100, "reasoning": "...", "sources": [{"title": "...", "url": "..."}]}`

const rollupPrompt = `You are the situation-status judge for a crisis monitoring system.
Given the verified claim history of one tracked crisis, produce an overall verdict for the crisis itself.

Crisis: %q

Claim history (newest first):
%s

Respond with ONLY a JSON object of this exact shape:
{"status": "VERIFIED|DEBUNKED|UNCONFIRMED", "summary": "one-line overall situation summary"}`

// Synthesizer turns gathered evidence into verdicts via the judgment
// service, and rolls claim-level verdicts up to crisis level.
type Synthesizer struct {
	gateway judge.Gateway
	model   string
}

func NewSynthesizer(gateway judge.Gateway, model string) *Synthesizer {
	return &Synthesizer{gateway: gateway, model: model}
}

// Synthesize produces a verdict for one claim from its evidence block.
// Status outside the known set and confidence outside [0,100] are coerced
// rather than rejected; a malformed response is an error.
func (s *Synthesizer) Synthesize(ctx context.Context, claimText string, evidence []agents.EvidenceItem) (Verdict, error) {
	prompt := fmt.Sprintf(verdictPrompt, claimText, FormatEvidence(evidence))
	raw, err := s.gateway.Generate(ctx, s.model, prompt, judge.GenerateOptions{JSONOutput: true})
	if err != nil {
		return Verdict{}, fmt.Errorf("verdict synthesis: %w", err)
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("verdict synthesis returned malformed JSON: %w", err)
	}
	verdict.Status = store.VerificationStatus(strings.ToUpper(string(verdict.Status)))
	if !store.ValidVerificationStatus(verdict.Status) {
		verdict.Status = store.StatusUnconfirmed
	}
	verdict.Confidence = store.ClampSeverity(verdict.Confidence)
	if verdict.Summary == "" {
		verdict.Summary = "No synthesis summary produced."
	}
	return verdict, nil
}

// Rollup produces a crisis-level status from its claim history.
func (s *Synthesizer) Rollup(ctx context.Context, crisisName string, items []store.TimelineItem) (status, summary string, err error) {
	if len(items) == 0 {
		return string(store.StatusUnconfirmed), "No verified claims yet.", nil
	}

	var history strings.Builder
	for _, item := range items {
		fmt.Fprintf(&history, "- [%s, confidence %d] %s: %s\n", item.Status, item.Confidence, item.ClaimText, item.Summary)
	}

	raw, err := s.gateway.Generate(ctx, s.model, fmt.Sprintf(rollupPrompt, crisisName, history.String()), judge.GenerateOptions{JSONOutput: true})
	if err != nil {
		return "", "", fmt.Errorf("crisis rollup: %w", err)
	}

	var payload struct {
		Status  string `json:"status"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return "", "", fmt.Errorf("crisis rollup returned malformed JSON: %w", err)
	}
	st := store.VerificationStatus(strings.ToUpper(payload.Status))
	if !store.ValidVerificationStatus(st) {
		st = store.StatusUnconfirmed
	}
	if payload.Summary == "" {
		payload.Summary = "No overall summary produced."
	}
	return string(st), payload.Summary, nil
}

// FormatEvidence renders evidence items as the text block the synthesis
// prompt consumes, grouped in official, media, debunk order.
func FormatEvidence(evidence []agents.EvidenceItem) string {
	var b strings.Builder
	for _, kind := range []agents.EvidenceKind{agents.KindOfficial, agents.KindMedia, agents.KindDebunk} {
		fmt.Fprintf(&b, "[%s]\n", kind)
		for _, item := range evidence {
			if item.Kind != kind {
				continue
			}
			if item.URL != "" {
				fmt.Fprintf(&b, "- %s (%s): %s\n", item.Title, item.URL, item.Snippet)
			} else {
				fmt.Fprintf(&b, "- %s: %s\n", item.Title, item.Snippet)
			}
		}
	}
	return b.String()
}
