package payment

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func sign(body []byte, secret string, ts time.Time) string {
    mac := hmac.New(sha256.New, []byte(secret))
    fmt.Fprintf(mac, "%d.", ts.Unix())
    mac.Write(body)
    return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func succeededBody(intentID string) []byte {
    return []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"` + intentID + `"}}}`)
}

func TestVerifyAndParseValidSignature(t *testing.T) {
    now := time.Now()
    body := succeededBody("pi_123")
    ev, err := VerifyAndParse(body, sign(body, "whsec_test", now), "whsec_test", now)
    require.NoError(t, err)
    assert.Equal(t, EventPaymentSucceeded, ev.Type)
    assert.Equal(t, "pi_123", ev.IntentID)
}

func TestVerifyAndParseRejectsBadSignature(t *testing.T) {
    now := time.Now()
    body := succeededBody("pi_123")

    _, err := VerifyAndParse(body, sign(body, "wrong_secret", now), "whsec_test", now)
    assert.ErrorIs(t, err, ErrBadSignature)

    // Tampered body after signing.
    sig := sign(body, "whsec_test", now)
    _, err = VerifyAndParse(succeededBody("pi_999"), sig, "whsec_test", now)
    assert.ErrorIs(t, err, ErrBadSignature)

    _, err = VerifyAndParse(body, "", "whsec_test", now)
    assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyAndParseRejectsReplay(t *testing.T) {
    now := time.Now()
    body := succeededBody("pi_123")
    old := now.Add(-10 * time.Minute)
    _, err := VerifyAndParse(body, sign(body, "whsec_test", old), "whsec_test", now)
    assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyAndParseSkipsVerificationWithoutSecret(t *testing.T) {
    body := []byte(`{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_f"}}}`)
    ev, err := VerifyAndParse(body, "", "", time.Now())
    require.NoError(t, err)
    assert.Equal(t, EventPaymentFailed, ev.Type)
    assert.Equal(t, "pi_f", ev.IntentID)
}

func TestVerifyAndParseRejectsIncompletePayload(t *testing.T) {
    _, err := VerifyAndParse([]byte(`{"type":"payment_intent.succeeded"}`), "", "", time.Now())
    assert.Error(t, err)
    _, err = VerifyAndParse([]byte(`not json`), "", "", time.Now())
    assert.Error(t, err)
}
