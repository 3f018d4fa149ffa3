package agents

import (
	"context"
)

// EvidenceKind tags where a piece of evidence came from.
type EvidenceKind string

const (
	KindOfficial EvidenceKind = "OFFICIAL"
	KindMedia    EvidenceKind = "MEDIA"
	KindDebunk   EvidenceKind = "DEBUNK"
)

// EvidenceItem is a single provenance-tagged fact fragment. Items are
// transient; only the synthesis step consumes them.
type EvidenceItem struct {
	Kind    EvidenceKind
	Title   string
	URL     string
	Snippet string
}

// Agent gathers evidence for one claim through a single channel. Gather
// never returns an error: internal fetch failures contribute nothing and
// an empty outcome is replaced by a human-readable sentinel item so the
// synthesis step always has input to reason over.
type Agent interface {
	Kind() EvidenceKind
	Gather(ctx context.Context, claimText string) []EvidenceItem
}

func sentinelItem(kind EvidenceKind, message string) []EvidenceItem {
	return []EvidenceItem{{Kind: kind, Title: "No evidence found", Snippet: message}}
}
