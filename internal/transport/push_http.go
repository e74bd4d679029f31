package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/lumenlearn/engage/internal/config"
	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/pkg/httpretry"
)

// HTTPPushTransport posts payloads directly to subscription endpoints.
type HTTPPushTransport struct {
	serviceKey string
	httpClient httpretry.HTTPDoer
}

// NewHTTPPushTransport creates a push transport from config. An empty
// service key leaves the transport unconfigured.
func NewHTTPPushTransport(cfg config.PushConfig) *HTTPPushTransport {
	return &HTTPPushTransport{
		serviceKey: cfg.ServiceKey,
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

// SendToEndpoint posts the payload to the subscription's endpoint with the
// given TTL. 404/410 responses classify as permanent failures.
func (t *HTTPPushTransport) SendToEndpoint(ctx context.Context, sub domain.PushSubscription, payload []byte, ttlSeconds int) (SendOutcome, error) {
	if t.serviceKey == "" {
		return OutcomeTransientFailure, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return OutcomeTransientFailure, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", strconv.Itoa(ttlSeconds))
	req.Header.Set("Authorization", "key="+t.serviceKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return OutcomeTransientFailure, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OutcomeSuccess, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return OutcomePermanentFailure, fmt.Errorf("endpoint gone (status %d)", resp.StatusCode)
	default:
		return OutcomeTransientFailure, fmt.Errorf("push rejected (status %d)", resp.StatusCode)
	}
}
