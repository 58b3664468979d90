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

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "amount_total": 499,
      "currency": "eur",
      "payment_intent": "pi_1",
      "metadata": {"articleId": "3", "userId": "9", "paymentId": "12"}
    }
  }
}`

func sign(payload, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhookVerifiesSignature(t *testing.T) {
	g := NewStripeGateway(StripeConfig{WebhookSecret: "whsec_test"})

	event, err := g.ParseWebhook([]byte(completedEvent), sign(completedEvent, "whsec_test", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
	assert.Equal(t, int64(499), event.AmountTotal)
	assert.Equal(t, "eur", event.Currency)
	assert.Equal(t, "12", event.Metadata["paymentId"])
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway(StripeConfig{WebhookSecret: "whsec_test"})

	_, err := g.ParseWebhook([]byte(completedEvent), sign(completedEvent, "other", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.ParseWebhook([]byte(completedEvent), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	stale := sign(completedEvent, "whsec_test", time.Now().Add(-time.Hour))
	_, err = g.ParseWebhook([]byte(completedEvent), stale)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseWebhookSkipSignature(t *testing.T) {
	g := NewStripeGateway(StripeConfig{SkipSignature: true})

	event, err := g.ParseWebhook([]byte(completedEvent), "")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", event.SessionID)
}
