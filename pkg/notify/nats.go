package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// NATSNotifier publishes, or request-replies, a hook message on a
// subject derived from a fixed subject or a per-hook prefix.
type NATSNotifier struct {
	conn           *nats.Conn
	Subject        string
	Prefix         string
	WaitForReplies bool
	Format         Format
}

func NewNATSNotifier(urls string, subject, prefix string, waitForReplies bool, format Format, opts ...nats.Option) (*NATSNotifier, error) {
	conn, err := nats.Connect(urls, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats notifier: connect failed: %w", err)
	}

	return &NATSNotifier{conn: conn, Subject: subject, Prefix: prefix, WaitForReplies: waitForReplies, Format: format}, nil
}

func (n *NATSNotifier) Name() string { return "nats" }

func (n *NATSNotifier) Prepare(ctx context.Context) error { return nil }

func (n *NATSNotifier) subjectFor(hook upload.Hook) string {
	if n.Prefix != "" {
		return fmt.Sprintf("%s.%s", n.Prefix, hook)
	}
	if n.Subject != "" {
		return n.Subject
	}
	return string(hook)
}

func (n *NATSNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	body, err := FormatMessage(n.Format, message)
	if err != nil {
		return err
	}

	subject := n.subjectFor(hook)

	if !n.WaitForReplies {
		return n.conn.Publish(subject, body)
	}

	resp, err := n.conn.RequestWithContext(ctx, subject, body)
	if err != nil {
		return fmt.Errorf("nats notifier: request failed: %w", err)
	}

	if len(resp.Data) != 0 && string(resp.Data) != "OK" {
		return fmt.Errorf("nats notifier: received error response: %s", resp.Data)
	}

	return nil
}
