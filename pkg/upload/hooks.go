package upload

import (
	"context"
	"net/http"
)

// Hook names the lifecycle event a notifier is being asked to deliver.
type Hook string

const (
	HookPreCreate     Hook = "pre-create"
	HookPostCreate    Hook = "post-create"
	HookPostReceive   Hook = "post-receive"
	HookPreTerminate  Hook = "pre-terminate"
	HookPostTerminate Hook = "post-terminate"
	HookPostFinish    Hook = "post-finish"
)

// AllHooks lists every hook name, in the order queues should be
// declared for transports (like AMQP) that need a closed enumeration
// up front.
var AllHooks = []Hook{
	HookPreCreate, HookPostCreate, HookPostReceive,
	HookPreTerminate, HookPostTerminate, HookPostFinish,
}

// RequestInfo is the subset of an incoming HTTP request forwarded to
// notifiers, independent of net/http so a Notifier implementation
// never needs to import it directly.
type RequestInfo struct {
	URI        string
	Method     string
	RemoteAddr string
	Header     http.Header
}

// HookMessage is the full payload handed to the notification fabric:
// the originating request plus the FileInfo as it stands at the time
// of the hook.
type HookMessage struct {
	Request RequestInfo
	Upload  FileInfo
}

// Notifier emits one hook message to one transport. Prepare is called
// once at startup for transports that need to establish connections or
// declare topics/queues/exchanges.
type Notifier interface {
	Name() string
	Prepare(ctx context.Context) error
	Send(ctx context.Context, hook Hook, message HookMessage) error
}
