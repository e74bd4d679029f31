package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lumenlearn/engage/internal/config"
	"github.com/lumenlearn/engage/internal/pkg/httpretry"
)

// HTTPCallTransport places outbound calls through a Twilio-compatible
// voice API.
type HTTPCallTransport struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewHTTPCallTransport creates a call transport from config. An empty
// account SID leaves the transport unconfigured.
func NewHTTPCallTransport(cfg config.TelephonyConfig) *HTTPCallTransport {
	return &HTTPCallTransport{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

type callCreateResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCall asks the provider to dial toNumber. The provider fetches the
// call script from scriptURL once the call connects and posts lifecycle
// updates to statusCallbackURL.
func (t *HTTPCallTransport) PlaceCall(ctx context.Context, toNumber, scriptURL, statusCallbackURL string) (string, error) {
	if t.accountSID == "" {
		return "", ErrNotConfigured
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.fromNumber)
	form.Set("Url", scriptURL)
	form.Set("StatusCallback", statusCallbackURL)
	form.Set("StatusCallbackEvent", "initiated ringing answered completed")

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("call rejected (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var created callCreateResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if created.SID == "" {
		return "", fmt.Errorf("provider returned no call sid")
	}
	return created.SID, nil
}
