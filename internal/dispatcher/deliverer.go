package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventstore/eventcore/internal/domain"
)

// Deliverer delivers a batch of events to a consumer's callback URL,
// returning the response status code (or an error if the request itself
// couldn't be made/completed). 2xx status codes are treated as success by
// the dispatcher; everything else is a delivery failure subject to retry.
type Deliverer interface {
	Deliver(ctx context.Context, callbackURL, consumerID string, events []domain.Event) (statusCode int, err error)
}

// webhookBody is the wire shape for outbound delivery: { consumerId,
// events: [{id, type, timestamp, payload}, ...] } per §6.
type webhookBody struct {
	ConsumerID string         `json:"consumerId"`
	Events     []domain.Event `json:"events"`
}

// HTTPDeliverer posts the event batch to the consumer's callback URL, the
// webhook delivery shape from §6 External Interfaces.
type HTTPDeliverer struct {
	client *http.Client
}

// NewHTTPDeliverer constructs a deliverer with the given per-request
// timeout.
func NewHTTPDeliverer(timeout time.Duration) *HTTPDeliverer {
	return &HTTPDeliverer{client: &http.Client{Timeout: timeout}}
}

// Deliver implements Deliverer.
func (h *HTTPDeliverer) Deliver(ctx context.Context, callbackURL, consumerID string, events []domain.Event) (int, error) {
	body, err := json.Marshal(webhookBody{ConsumerID: consumerID, Events: events})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

var _ Deliverer = (*HTTPDeliverer)(nil)

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
