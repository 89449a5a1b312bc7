package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

type fakeNotifier struct {
	name string
	err  error

	mu   sync.Mutex
	sent []upload.Hook
}

func (f *fakeNotifier) Name() string                       { return f.name }
func (f *fakeNotifier) Prepare(ctx context.Context) error  { return nil }
func (f *fakeNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, hook)
	f.mu.Unlock()
	return f.err
}

func (f *fakeNotifier) sentHooks() []upload.Hook {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upload.Hook(nil), f.sent...)
}

func TestIsPreHook(t *testing.T) {
	assert.True(t, IsPreHook(upload.HookPreCreate))
	assert.True(t, IsPreHook(upload.HookPreTerminate))
	assert.False(t, IsPreHook(upload.HookPostFinish))
}

func TestNotifyDeliversToEveryNotifier(t *testing.T) {
	a := &fakeNotifier{name: "a"}
	b := &fakeNotifier{name: "b"}
	mgr := NewManager([]upload.Notifier{a, b}, FormatDefault, zerolog.Nop())

	err := mgr.Notify(context.Background(), upload.HookPreCreate, upload.HookMessage{})
	require.NoError(t, err)
	assert.Equal(t, []upload.Hook{upload.HookPreCreate}, a.sentHooks())
	assert.Equal(t, []upload.Hook{upload.HookPreCreate}, b.sentHooks())
}

func TestNotifyAbortsOnFirstError(t *testing.T) {
	failure := errors.New("rejected")
	a := &fakeNotifier{name: "a", err: failure}
	b := &fakeNotifier{name: "b"}
	mgr := NewManager([]upload.Notifier{a, b}, FormatDefault, zerolog.Nop())

	err := mgr.Notify(context.Background(), upload.HookPreCreate, upload.HookMessage{})
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, b.sentHooks())
}

func TestNotifyAsyncSwallowsErrors(t *testing.T) {
	a := &fakeNotifier{name: "a", err: errors.New("unreachable")}
	mgr := NewManager([]upload.Notifier{a}, FormatDefault, zerolog.Nop())

	mgr.NotifyAsync(upload.HookPostFinish, upload.HookMessage{})

	require.Eventually(t, func() bool {
		return len(a.sentHooks()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestIdempotencyKeyRoundTrip(t *testing.T) {
	ctx := withIdempotencyKey(context.Background(), "key-123")
	assert.Equal(t, "key-123", IdempotencyKeyFromContext(ctx))
	assert.Equal(t, "", IdempotencyKeyFromContext(context.Background()))
}
