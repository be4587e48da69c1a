package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func newTestGateway(url string) *StripeGateway {
	return NewStripeGateway(StripeOptions{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		APIURL:        url,
	})
}

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2550", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "7", r.PostForm.Get("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","object":"payment_intent","client_secret":"pi_123_secret_abc","amount":2550,"currency":"usd"}`)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		AmountMinor: 2550,
		Currency:    "USD",
		Metadata:    map[string]string{"order_id": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
}

func TestCreateIntentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"amount_too_small","message":"Amount must be at least $0.50 usd"}}`)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	_, err := gw.CreateIntent(context.Background(), IntentRequest{AmountMinor: 10, Currency: "usd"})
	require.Error(t, err)

	var stripeErr *stripe.Error
	require.ErrorAs(t, err, &stripeErr)
	assert.Equal(t, stripe.ErrorCodeAmountTooSmall, stripeErr.Code)
}

func signedEvent(t *testing.T, eventType string, object map[string]interface{}, secret string) ([]byte, string) {
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func TestParseWebhookSucceeded(t *testing.T) {
	gw := newTestGateway("")
	payload, header := signedEvent(t, EventPaymentSucceeded, map[string]interface{}{
		"id":       "pi_123",
		"object":   "payment_intent",
		"metadata": map[string]string{"order_id": "42"},
	}, testWebhookSecret)

	event, err := gw.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_123", event.IntentID)
	assert.Equal(t, "42", event.Metadata["order_id"])
}

func TestParseWebhookOtherType(t *testing.T) {
	gw := newTestGateway("")
	payload, header := signedEvent(t, "charge.refunded", map[string]interface{}{
		"id":     "ch_1",
		"object": "charge",
	}, testWebhookSecret)

	event, err := gw.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", event.Type)
	assert.Empty(t, event.IntentID)
}

func TestParseWebhookBadSignature(t *testing.T) {
	gw := newTestGateway("")
	payload, header := signedEvent(t, EventPaymentSucceeded, map[string]interface{}{"id": "pi_1"}, "whsec_other")

	_, err := gw.ParseWebhook(payload, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = gw.ParseWebhook(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseWebhookBadPayload(t *testing.T) {
	gw := newTestGateway("")

	_, err := gw.ParseWebhook([]byte("not json"), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
