package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethgrid/pester"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// maxHookResponseBody caps how much of a non-2xx hook response body is
// read back for the HookFailure passthrough.
const maxHookResponseBody = 1 << 20 // 1 MiB

// HTTPNotifier posts the hook message to a configured URL.
type HTTPNotifier struct {
	URL             string
	Format          Format
	Timeout         time.Duration
	MaxRetries      int
	ForwardHeaders  []string
	client          *pester.Client
}

// NewHTTPNotifier builds an HTTPNotifier backed by a pester client
// configured with linear backoff.
func NewHTTPNotifier(url string, format Format, timeout time.Duration, maxRetries int, forwardHeaders []string) *HTTPNotifier {
	client := pester.New()
	client.Backoff = pester.LinearBackoff
	client.MaxRetries = maxRetries
	client.Timeout = timeout

	return &HTTPNotifier{
		URL: url, Format: format, Timeout: timeout, MaxRetries: maxRetries,
		ForwardHeaders: forwardHeaders, client: client,
	}
}

func (n *HTTPNotifier) Name() string { return "http" }

func (n *HTTPNotifier) Prepare(ctx context.Context) error { return nil }

func (n *HTTPNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	body, err := FormatMessage(n.Format, message)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Hook-Name", string(hook))
	if key := IdempotencyKeyFromContext(ctx); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	for _, headerName := range n.ForwardHeaders {
		if value := message.Request.Header.Get(headerName); value != "" {
			req.Header.Set(headerName, value)
		}
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return upload.Wrap(err, upload.KindInternal, "http notifier request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limited := io.LimitReader(resp.Body, maxHookResponseBody)
		respBody, _ := io.ReadAll(limited)
		contentType := resp.Header.Get("Content-Type")

		if IsPreHook(hook) {
			return upload.NewHookFailure(resp.StatusCode, string(respBody), contentType)
		}
		return fmt.Errorf("http notifier: hook %s returned status %d: %s", hook, resp.StatusCode, respBody)
	}

	return nil
}
