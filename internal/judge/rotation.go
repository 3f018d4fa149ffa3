package judge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

const defaultRotationBackoff = 500 * time.Millisecond

// Gateway is the typed entry point every judgment-dependent component uses.
type Gateway interface {
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)
}

// RotationManager rotates among a pool of credentials for the judgment
// service. When the active credential is rate limited, the manager advances
// the pool index under a lock, backs off briefly, and retries the original
// call. One invocation tries at most poolSize credentials before failing
// with ErrPoolExhausted.
type RotationManager struct {
	caller  Caller
	keys    []string
	backoff time.Duration
	logger  logging.Logger

	mu    sync.Mutex
	index int
}

// RotationConfig configures the rotation manager.
type RotationConfig struct {
	Caller  Caller
	Keys    []string
	Backoff time.Duration
	Logger  logging.Logger
}

// NewRotationManager builds the manager. At least one credential is
// required.
func NewRotationManager(cfg RotationConfig) (*RotationManager, error) {
	if cfg.Caller == nil {
		return nil, errors.New("rotation manager requires a caller")
	}
	keys := make([]string, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no judgment service credentials configured")
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultRotationBackoff
	}
	m := &RotationManager{
		caller:  cfg.Caller,
		keys:    keys,
		backoff: backoff,
		logger:  cfg.Logger,
	}
	if m.logger != nil {
		m.logger.WithFields(logging.Fields{
			"pool_size": len(keys),
			"active":    maskKey(keys[0]),
		}).Info("Credential pool initialized")
	}
	return m, nil
}

// PoolSize returns the number of credentials in the pool.
func (m *RotationManager) PoolSize() int {
	return len(m.keys)
}

// Generate runs one generation call, rotating credentials on rate-limit
// failures. Non-rate-limit errors propagate immediately with no retry.
func (m *RotationManager) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	attempts := len(m.keys)
	for attempt := 1; ; attempt++ {
		start := time.Now()
		text, err := m.caller.Generate(ctx, m.activeKey(), model, prompt, opts)
		generateDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			generateCallsTotal.WithLabelValues(model, "ok").Inc()
			return text, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			generateCallsTotal.WithLabelValues(model, "error").Inc()
			return "", err
		}
		generateCallsTotal.WithLabelValues(model, "rate_limited").Inc()

		if attempt >= attempts {
			if m.logger != nil {
				m.logger.WithField("attempts", attempt).Error("Credential pool exhausted")
			}
			return "", fmt.Errorf("%w after %d attempts", ErrPoolExhausted, attempt)
		}

		m.rotate()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.backoff):
		}
	}
}

func (m *RotationManager) activeKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[m.index]
}

// rotate advances the active index under the exclusive rotation section.
// Concurrent callers may each trigger a rotation after hitting the same
// exhausted credential; that over-rotation is tolerated.
func (m *RotationManager) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	rotationsTotal.Inc()
	prev := m.index
	m.index = (m.index + 1) % len(m.keys)
	if m.logger != nil {
		m.logger.WithFields(logging.Fields{
			"from":   prev + 1,
			"to":     m.index + 1,
			"active": maskKey(m.keys[m.index]),
		}).Warn("Rate limit hit, rotating credential")
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
