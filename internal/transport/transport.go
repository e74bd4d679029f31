// Package transport holds the engine's external delivery boundaries: the
// push endpoint sender and the voice call placer. Both are interfaces so
// channels can be tested with fakes; the HTTP implementations talk to the
// real providers.
package transport

import (
	"context"
	"errors"

	"github.com/lumenlearn/engage/internal/domain"
)

// ErrNotConfigured is returned when a transport has no provider credentials.
// Channels map it to a clean business failure, not a crash; running without
// credentials is normal in development.
var ErrNotConfigured = errors.New("transport not configured")

// SendOutcome classifies a push endpoint delivery attempt.
type SendOutcome int

const (
	OutcomeSuccess SendOutcome = iota

	// OutcomePermanentFailure means the endpoint is gone for good
	// (HTTP 404/410) and the subscription should be deactivated.
	OutcomePermanentFailure

	OutcomeTransientFailure
)

// PushTransport delivers one payload to one push subscription endpoint.
type PushTransport interface {
	SendToEndpoint(ctx context.Context, sub domain.PushSubscription, payload []byte, ttlSeconds int) (SendOutcome, error)
}

// CallTransport asks the voice provider to place an outbound call. The
// provider fetches the call script from scriptURL and reports lifecycle
// transitions to statusCallbackURL. Returns the provider's call id.
type CallTransport interface {
	PlaceCall(ctx context.Context, toNumber, scriptURL, statusCallbackURL string) (string, error)
}
