package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/chorehub/internal/apperr"
)

// OrderClient talks to the capture gateway's order API over HTTP.
type OrderClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

type OrderOption func(*OrderClient)

func WithOrderHTTPClient(c *http.Client) OrderOption {
	return func(cl *OrderClient) {
		cl.httpClient = c
	}
}

func NewOrderClient(baseURL, keyID, keySecret string, opts ...OrderOption) *OrderClient {
	c := &OrderClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// CreateOrder creates a payment order for the given amount in paise and
// returns its external reference.
func (c *OrderClient) CreateOrder(ctx context.Context, amount int64, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.External("capture gateway unreachable", true, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, apperr.External(fmt.Sprintf("capture gateway error: status %d", resp.StatusCode), true, nil)
	case resp.StatusCode >= 400:
		return nil, apperr.External(fmt.Sprintf("capture gateway rejected order: status %d", resp.StatusCode), false, nil)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if out.ID == "" {
		return nil, apperr.External("capture gateway returned empty order id", false, nil)
	}

	return &Order{Reference: out.ID, Amount: amount}, nil
}
