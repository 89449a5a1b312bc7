package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// Manager fans a hook out across every configured Notifier, in
// registration order. Pre-hooks must be delivered with Notify, which
// aborts on the first failing notifier. Post-hooks must be delivered
// with NotifyAsync, which logs and swallows every failure so a
// misbehaving subscriber never affects the client response.
type Manager struct {
	notifiers []upload.Notifier
	format    Format
	log       zerolog.Logger
}

// NewManager builds a Manager over the given notifiers, already
// constructed and Prepare'd by the caller.
func NewManager(notifiers []upload.Notifier, format Format, log zerolog.Logger) *Manager {
	return &Manager{notifiers: notifiers, format: format, log: log}
}

// IsPreHook reports whether hook must block the request it guards.
func IsPreHook(hook upload.Hook) bool {
	return hook == upload.HookPreCreate || hook == upload.HookPreTerminate
}

// Notify delivers hook synchronously to every notifier in order,
// returning the first error encountered (a pre-hook failure). The
// Idempotency-Key attached to the HTTP notifier transport is derived
// once per call so that retried deliveries across notifiers within
// the same logical event share one key.
func (m *Manager) Notify(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	idempotencyKey := uuid.NewString()
	ctx = withIdempotencyKey(ctx, idempotencyKey)

	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, hook, message); err != nil {
			return err
		}
	}
	return nil
}

// NotifyAsync fires hook on every notifier in a background goroutine.
// Every failure is logged with the Manager's own logger, tagged with
// the hook, notifier and upload id, and never surfaced to the caller;
// no request-scoped logger or request id is carried into the goroutine.
func (m *Manager) NotifyAsync(hook upload.Hook, message upload.HookMessage) {
	notifiers := m.notifiers
	log := m.log
	go func() {
		ctx := withIdempotencyKey(context.Background(), uuid.NewString())
		for _, notifier := range notifiers {
			if err := notifier.Send(ctx, hook, message); err != nil {
				log.Warn().
					Err(err).
					Str("hook", string(hook)).
					Str("notifier", notifier.Name()).
					Str("upload_id", message.Upload.ID).
					Msg("post-hook notifier failed")
			}
		}
	}()
}

type idempotencyKeyCtxKey struct{}

func withIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtxKey{}, key)
}

// IdempotencyKeyFromContext retrieves the key set by Notify/NotifyAsync,
// used by the HTTP notifier to set the Idempotency-Key header.
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtxKey{}).(string)
	return key
}
