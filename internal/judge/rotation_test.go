package judge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedCaller fails with ErrRateLimited for the listed keys and succeeds
// for everything else.
type scriptedCaller struct {
	mu        sync.Mutex
	exhausted map[string]bool
	calls     []string
	otherErr  error
}

func (c *scriptedCaller) Generate(_ context.Context, apiKey, _, _ string, _ GenerateOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, apiKey)
	if c.otherErr != nil {
		return "", c.otherErr
	}
	if c.exhausted[apiKey] {
		return "", ErrRateLimited
	}
	return "verdict text", nil
}

func newManager(t *testing.T, caller Caller, keys []string) *RotationManager {
	t.Helper()
	m, err := NewRotationManager(RotationConfig{
		Caller:  caller,
		Keys:    keys,
		Backoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRotationManager: %v", err)
	}
	return m
}

func TestRotationSucceedsAfterTwoRotations(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{exhausted: map[string]bool{"key-1": true, "key-2": true}}
	m := newManager(t, caller, []string{"key-1", "key-2", "key-3"})

	text, err := m.Generate(context.Background(), "model", "prompt", GenerateOptions{})
	if err != nil {
		t.Fatalf("expected success on third credential, got %v", err)
	}
	if text != "verdict text" {
		t.Fatalf("unexpected text %q", text)
	}
	want := []string{"key-1", "key-2", "key-3"}
	if len(caller.calls) != len(want) {
		t.Fatalf("expected %d attempts, got %d", len(want), len(caller.calls))
	}
	for i := range want {
		if caller.calls[i] != want[i] {
			t.Fatalf("attempt %d used %q, expected %q", i, caller.calls[i], want[i])
		}
	}
}

func TestRotationExhaustsPoolAfterExactlyPoolSizeAttempts(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{exhausted: map[string]bool{"key-1": true, "key-2": true, "key-3": true}}
	m := newManager(t, caller, []string{"key-1", "key-2", "key-3"})

	_, err := m.Generate(context.Background(), "model", "prompt", GenerateOptions{})
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if len(caller.calls) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(caller.calls))
	}
}

func TestRotationPropagatesNonRateLimitErrors(t *testing.T) {
	t.Parallel()

	fatal := errors.New("safety block")
	caller := &scriptedCaller{otherErr: fatal}
	m := newManager(t, caller, []string{"key-1", "key-2"})

	_, err := m.Generate(context.Background(), "model", "prompt", GenerateOptions{})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error to propagate, got %v", err)
	}
	if len(caller.calls) != 1 {
		t.Fatalf("expected no retry for non-rate-limit error, got %d attempts", len(caller.calls))
	}
}

func TestRotationIndexStaysInRangeUnderConcurrency(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{exhausted: map[string]bool{"key-1": true}}
	m := newManager(t, caller, []string{"key-1", "key-2", "key-3"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Generate(context.Background(), "model", "prompt", GenerateOptions{})
		}()
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 || m.index >= len(m.keys) {
		t.Fatalf("index %d out of range [0,%d)", m.index, len(m.keys))
	}
}

func TestRotationRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := NewRotationManager(RotationConfig{Caller: &scriptedCaller{}, Keys: []string{"", ""}}); err == nil {
		t.Fatal("expected error for empty credential pool")
	}
}
