package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DextroByt/Sentinel-AI/internal/judge"
)

// Claim is one discrete checkable statement extracted from raw text.
type Claim struct {
	Text     string `json:"text"`
	Location string `json:"location"`
}

const claimExtractionPrompt = `You are a claim extraction engine for a crisis monitoring system.
Split the input text into discrete, independently checkable factual claims.
For each claim, identify the geographic location it concerns, or "" if none is stated.

Rules:
- One claim per distinct factual assertion. Do not merge unrelated assertions.
- Preserve the original wording as closely as possible.
- Skip opinions, questions, and pure emotional content.

Respond with ONLY a JSON object of this exact shape:
{"claims": [{"text": "...", "location": "..."}]}

Input text:
%s`

// ClaimExtractor turns free-form text into a list of verifiable claims via
// the judgment service.
type ClaimExtractor struct {
	gateway judge.Gateway
	model   string
}

func NewClaimExtractor(gateway judge.Gateway, model string) *ClaimExtractor {
	return &ClaimExtractor{gateway: gateway, model: model}
}

// Extract returns the claims found in text. Claims shorter than five runes
// are dropped as noise. An empty result with a nil error means the text
// carried nothing checkable.
func (e *ClaimExtractor) Extract(ctx context.Context, text string) ([]Claim, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	raw, err := e.gateway.Generate(ctx, e.model, fmt.Sprintf(claimExtractionPrompt, text), judge.GenerateOptions{JSONOutput: true})
	if err != nil {
		return nil, fmt.Errorf("claim extraction: %w", err)
	}

	var payload struct {
		Claims []Claim `json:"claims"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("claim extraction returned malformed JSON: %w", err)
	}

	claims := make([]Claim, 0, len(payload.Claims))
	for _, c := range payload.Claims {
		c.Text = strings.TrimSpace(c.Text)
		c.Location = strings.TrimSpace(c.Location)
		if utf8.RuneCountInString(c.Text) < 5 {
			continue
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// stripCodeFence removes a markdown code fence the judgment service
// sometimes wraps its JSON in despite the response MIME type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
