package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound means the order system answered but had no usable
	// amount for the order (missing order or missing price fields).
	ErrOrderNotFound = errors.New("shopify: order not found")
	// ErrUpstream covers transport failures and non-2xx responses, kept
	// distinct from ErrOrderNotFound so callers can branch retry policy later.
	ErrUpstream = errors.New("shopify: upstream failure")
)

// Client talks to the Shopify Admin API with a static access token.
type Client struct {
	baseURL      string
	accessToken  string
	apiVersion   string
	gatewayLabel string
	currency     string
	client       *http.Client
}

func NewClient(baseURL, accessToken, apiVersion, gatewayLabel, currency string, timeout time.Duration) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") && baseURL != "" {
		baseURL = "https://" + baseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		accessToken:  accessToken,
		apiVersion:   apiVersion,
		gatewayLabel: gatewayLabel,
		currency:     currency,
		client:       &http.Client{Timeout: timeout},
	}
}

type orderResponse struct {
	Order *struct {
		ID            int64 `json:"id"`
		TotalPriceSet *struct {
			ShopMoney struct {
				Amount string `json:"amount"`
			} `json:"shop_money"`
		} `json:"total_price_set"`
		TotalPrice string `json:"total_price"`
	} `json:"order"`
}

// GetOrderAmount fetches the order total and returns it in cents. The primary
// field path is total_price_set.shop_money.amount; older payloads only carry
// the flat total_price, so that is the fallback. A zero total is returned as
// valid data with a warning; callers must not create a link for it.
func (c *Client) GetOrderAmount(ctx context.Context, orderID int64) (int64, error) {
	url := fmt.Sprintf("%s/admin/api/%s/orders/%d.json", c.baseURL, c.apiVersion, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: GET order %d status %d", ErrUpstream, orderID, resp.StatusCode)
	}
	var out orderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: decode order %d: %v", ErrUpstream, orderID, err)
	}
	if out.Order == nil {
		log.Printf("[Shopify] order %d: response missing order object", orderID)
		return 0, ErrOrderNotFound
	}
	raw := ""
	if out.Order.TotalPriceSet != nil {
		raw = out.Order.TotalPriceSet.ShopMoney.Amount
	}
	if raw == "" {
		raw = out.Order.TotalPrice
	}
	if raw == "" {
		log.Printf("[Shopify] order %d: no price data in either field path", orderID)
		return 0, ErrOrderNotFound
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: order %d total %q unparsable: %v", ErrUpstream, orderID, raw, err)
	}
	cents := amount.Shift(2).IntPart()
	if cents == 0 {
		log.Printf("[Shopify] order %d has a zero amount", orderID)
	}
	return cents, nil
}

// AnnotateOrder overwrites the order note with payment instructions. Failure
// is reported, not raised: a stale note never rolls back link creation.
func (c *Client) AnnotateOrder(ctx context.Context, orderID int64, note string) bool {
	payload := map[string]interface{}{
		"order": map[string]interface{}{"id": orderID, "note": note},
	}
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/admin/api/%s/orders/%d.json", c.baseURL, c.apiVersion, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[Shopify] annotate order %d: %v", orderID, err)
		return false
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[Shopify] annotate order %d: %v", orderID, err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("[Shopify] annotate order %d: status %d body %s", orderID, resp.StatusCode, string(respBody))
		return false
	}
	return true
}

// MarkOrderPaid records a successful sale transaction against the order. The
// order system keeps the canonical settlement state, so a rejection for an
// already-settled order is logged and reported as false rather than raised;
// duplicate completion deliveries must never crash the flow.
func (c *Client) MarkOrderPaid(ctx context.Context, orderID, amountCents int64) bool {
	amount := decimal.NewFromInt(amountCents).Shift(-2).StringFixed(2)
	payload := map[string]interface{}{
		"transaction": map[string]interface{}{
			"kind":     "sale",
			"status":   "success",
			"amount":   amount,
			"currency": c.currency,
			"gateway":  c.gatewayLabel,
		},
	}
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/admin/api/%s/orders/%d/transactions.json", c.baseURL, c.apiVersion, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[Shopify] mark paid order %d: %v", orderID, err)
		return false
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[Shopify] mark paid order %d: %v", orderID, err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("[Shopify] mark paid order %d: status %d body %s", orderID, resp.StatusCode, string(respBody))
		return false
	}
	return true
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")
}
