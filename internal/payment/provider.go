// Package payment is the boundary to the external payment authority.
// The provider SDK itself is out of scope; this package exposes the
// named interface the checkout coordinator needs and two
// implementations: a thin REST client for a configured provider and an
// in-process mock used when no provider key is present.
package payment

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
)

// ErrUnavailable signals that the provider could not be reached or
// rejected the request; handlers surface it as 502.
var ErrUnavailable = errors.New("payment provider unavailable")

// IntentRequest describes the payment intent to create.  Metadata is
// attached verbatim so that webhook reconciliation can recover an
// orphaned intent by its orderNumber/eventId keys.
type IntentRequest struct {
    AmountCents uint32            // total in minor units
    Currency    string            // ISO currency code, lower case
    Metadata    map[string]string // eventId, seatIds, orderNumber, sessionId, userId, customerEmail
}

// Intent is the provider's answer: the opaque intent id stored on the
// order and the client secret returned to the browser (empty in mock
// mode).
type Intent struct {
    ID           string
    ClientSecret string
}

// Provider creates payment intents with the external authority.
type Provider interface {
    CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// RESTProvider talks to a Stripe-compatible HTTP API with a secret key.
type RESTProvider struct {
    key     string
    baseURL string
    client  *http.Client
}

// NewRESTProvider builds a provider client for the given API key.
func NewRESTProvider(key string) *RESTProvider {
    return &RESTProvider{
        key:     key,
        baseURL: "https://api.stripe.com/v1",
        client:  &http.Client{Timeout: 15 * time.Second},
    }
}

// CreateIntent posts a form-encoded payment_intents request and decodes
// the id and client_secret from the response.
func (p *RESTProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
    form := url.Values{}
    form.Set("amount", strconv.FormatUint(uint64(req.AmountCents), 10))
    form.Set("currency", req.Currency)
    for k, v := range req.Metadata {
        form.Set("metadata["+k+"]", v)
    }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
        p.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
    if err != nil {
        return Intent{}, err
    }
    httpReq.Header.Set("Authorization", "Bearer "+p.key)
    httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

    resp, err := p.client.Do(httpReq)
    if err != nil {
        return Intent{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
    }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return Intent{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
    }
    var body struct {
        ID           string `json:"id"`
        ClientSecret string `json:"client_secret"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return Intent{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
    }
    return Intent{ID: body.ID, ClientSecret: body.ClientSecret}, nil
}

// MockProvider fabricates intent ids locally.  Used when no provider
// key is configured; the checkout coordinator then finalizes orders
// synchronously in the same call.
type MockProvider struct{}

// CreateIntent returns a synthetic intent with no client secret.
func (MockProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
    return Intent{ID: "pi_mock_" + uuid.NewString()}, nil
}
