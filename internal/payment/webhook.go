package payment

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"
)

// ErrBadSignature is returned for webhook payloads whose signature does
// not verify against the configured secret.
var ErrBadSignature = errors.New("webhook signature mismatch")

// Webhook event types the subsystem reacts to.
const (
    EventPaymentSucceeded = "payment_intent.succeeded"
    EventPaymentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is the provider payload after verification: the event
// type plus the payment intent it refers to.
type WebhookEvent struct {
    Type     string
    IntentID string
}

// signatureTolerance bounds how old a signed payload may be; replays
// beyond it are rejected.
const signatureTolerance = 5 * time.Minute

// VerifyAndParse checks the provider signature over the raw body and
// decodes the event.  The signature header carries "t=<unix>,v1=<hex>"
// where v1 = HMAC-SHA256(secret, "<t>.<body>").  With an empty secret
// verification is skipped (mock/dev mode).
func VerifyAndParse(body []byte, sigHeader, secret string, now time.Time) (WebhookEvent, error) {
    if secret != "" {
        if err := verifySignature(body, sigHeader, secret, now); err != nil {
            return WebhookEvent{}, err
        }
    }
    var payload struct {
        Type string `json:"type"`
        Data struct {
            Object struct {
                ID string `json:"id"`
            } `json:"object"`
        } `json:"data"`
    }
    if err := json.Unmarshal(body, &payload); err != nil {
        return WebhookEvent{}, fmt.Errorf("decode webhook: %w", err)
    }
    if payload.Type == "" || payload.Data.Object.ID == "" {
        return WebhookEvent{}, errors.New("webhook missing type or intent id")
    }
    return WebhookEvent{Type: payload.Type, IntentID: payload.Data.Object.ID}, nil
}

func verifySignature(body []byte, sigHeader, secret string, now time.Time) error {
    var ts int64 = -1
    var candidates []string
    for _, part := range strings.Split(sigHeader, ",") {
        k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
        if !ok {
            continue
        }
        switch k {
        case "t":
            n, err := strconv.ParseInt(v, 10, 64)
            if err != nil {
                return ErrBadSignature
            }
            ts = n
        case "v1":
            candidates = append(candidates, v)
        }
    }
    if ts < 0 || len(candidates) == 0 {
        return ErrBadSignature
    }
    age := now.Sub(time.Unix(ts, 0))
    if age > signatureTolerance || age < -signatureTolerance {
        return ErrBadSignature
    }
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(strconv.FormatInt(ts, 10)))
    mac.Write([]byte("."))
    mac.Write(body)
    expected := hex.EncodeToString(mac.Sum(nil))
    for _, c := range candidates {
        if hmac.Equal([]byte(expected), []byte(c)) {
            return nil
        }
    }
    return ErrBadSignature
}
