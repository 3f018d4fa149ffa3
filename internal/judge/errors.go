package judge

import "errors"

var (
	// ErrRateLimited is returned by a credential-scoped call when the
	// judgment service answered 429 for the active credential.
	ErrRateLimited = errors.New("judgment service rate limited")

	// ErrPoolExhausted is returned once every credential in the pool has
	// been tried within a single invocation. It is fatal for the caller's
	// current tick; stages fall back to their deterministic policies.
	ErrPoolExhausted = errors.New("all judgment service credentials are rate limited")
)
