package stripepay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk_test_123", "whsec_test", "https://store.example.com/thanks", "USD", 5*time.Second)
}

func TestCreatePaymentLink(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_links", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "order-link-1001", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "15000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Order #1001", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, []string{"us_bank_account"}, r.PostForm["payment_method_types[]"])
		assert.Equal(t, "1001", r.PostForm.Get("metadata[shopify_order_id]"))
		assert.Equal(t, "redirect", r.PostForm.Get("after_completion[type]"))
		w.Write([]byte(`{"id":"plink_123","url":"https://buy.stripe.com/test_abc"}`))
	})
	link, err := c.CreatePaymentLink(context.Background(), 1001, 15000)
	require.NoError(t, err)
	assert.Equal(t, "plink_123", link.ProviderID)
	assert.Equal(t, "https://buy.stripe.com/test_abc", link.URL)
	assert.Equal(t, int64(15000), link.AmountCents)
	assert.Equal(t, "USD", link.Currency)
}

func TestCreatePaymentLinkProcessorError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"parameter_invalid_integer","message":"This value must be greater than or equal to 1."}}`))
	})
	_, err := c.CreatePaymentLink(context.Background(), 1001, 0)
	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "This value must be greater than or equal to 1.", procErr.UserMessage)
	assert.Contains(t, procErr.Detail, "status 400")
	assert.NotContains(t, procErr.UserMessage, "status", "user message carries no internal diagnostics")
}

func TestCreatePaymentLinkMissingURL(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"plink_123"}`))
	})
	_, err := c.CreatePaymentLink(context.Background(), 1001, 15000)
	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)
}

// signPayload builds a Stripe-Signature header the way the processor does:
// HMAC-SHA256 over "<timestamp>.<payload>", hex encoded.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// eventPayload wraps a checkout session object in an event envelope carrying
// the SDK's pinned API version, which ConstructEvent insists on.
func eventPayload(id, sessionJSON string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"api_version":%q,"type":"checkout.session.completed","data":{"object":%s}}`,
		id, stripe.APIVersion, sessionJSON,
	))
}

func completedSessionEvent() []byte {
	return eventPayload("evt_1", `{
	  "id": "cs_test_1",
	  "object": "checkout.session",
	  "payment_status": "paid",
	  "amount_total": 15000,
	  "metadata": {"shopify_order_id": "1001"},
	  "customer_details": {"email": "buyer@example.com"}
	}`)
}

func TestVerifyEventAcceptsValidSignature(t *testing.T) {
	c := NewClient("", "sk_test_123", "whsec_test", "", "USD", time.Second)
	payload := completedSessionEvent()
	event, err := c.VerifyEvent(payload, signPayload(payload, "whsec_test", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
}

func TestVerifyEventRejectsWrongSecret(t *testing.T) {
	c := NewClient("", "sk_test_123", "whsec_test", "", "USD", time.Second)
	payload := completedSessionEvent()
	_, err := c.VerifyEvent(payload, signPayload(payload, "whsec_other", time.Now()))
	assert.Error(t, err)
}

func TestVerifyEventRejectsTamperedPayload(t *testing.T) {
	c := NewClient("", "sk_test_123", "whsec_test", "", "USD", time.Second)
	sig := signPayload(completedSessionEvent(), "whsec_test", time.Now())
	_, err := c.VerifyEvent([]byte(`{"id":"evt_2"}`), sig)
	assert.Error(t, err)
}

func TestParseCompletedSession(t *testing.T) {
	c := NewClient("", "sk_test_123", "whsec_test", "", "USD", time.Second)
	payload := completedSessionEvent()
	event, err := c.VerifyEvent(payload, signPayload(payload, "whsec_test", time.Now()))
	require.NoError(t, err)

	session, err := ParseCompletedSession(event)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, int64(1001), session.OrderID)
	assert.Equal(t, int64(15000), session.AmountCents)
	assert.Equal(t, "buyer@example.com", session.Email)
}

func TestParseCompletedSessionUnpaidIsNil(t *testing.T) {
	c := NewClient("", "sk_test_123", "whsec_test", "", "USD", time.Second)
	payload := eventPayload("evt_3", `{"id": "cs_2", "payment_status": "unpaid", "amount_total": 15000, "metadata": {"shopify_order_id": "1001"}}`)
	event, err := c.VerifyEvent(payload, signPayload(payload, "whsec_test", time.Now()))
	require.NoError(t, err)
	session, err := ParseCompletedSession(event)
	require.NoError(t, err)
	assert.Nil(t, session, "unsettled sessions wait for the later completion event")
}

func TestParseCompletedSessionMissingCorrelation(t *testing.T) {
	c := NewClient("", "sk_test_123", "whsec_test", "", "USD", time.Second)
	payload := eventPayload("evt_4", `{"id": "cs_3", "payment_status": "paid", "amount_total": 15000, "metadata": {}}`)
	event, err := c.VerifyEvent(payload, signPayload(payload, "whsec_test", time.Now()))
	require.NoError(t, err)
	_, err = ParseCompletedSession(event)
	assert.Error(t, err)
}
