package paypal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"acczen/metrics"
)

type Client struct {
	BaseURL  string
	ClientID string
	Secret   string
	HTTP     *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL:  os.Getenv("PAYPAL_API_URL"),
		ClientID: os.Getenv("PAYPAL_CLIENT_ID"),
		Secret:   os.Getenv("PAYPAL_SECRET"),
		HTTP:     &http.Client{Timeout: 20 * time.Second},
	}
}

type CreatedOrder struct {
	ID          string
	ApprovalURL string
}

type CaptureResult struct {
	Status  string
	PayerID string
}

func (c *Client) token() (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequest("POST", c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("paypal", "error").Inc()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ExternalRequestsTotal.WithLabelValues("paypal", "error").Inc()
		return "", fmt.Errorf("paypal token request failed, status: %s", resp.Status)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (c *Client) post(path, accessToken string, payload, out any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("paypal", "error").Inc()
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ExternalRequestsTotal.WithLabelValues("paypal", "error").Inc()
		return fmt.Errorf("paypal %s failed, status %d: %s", path, resp.StatusCode, string(body))
	}

	metrics.ExternalRequestsTotal.WithLabelValues("paypal", "ok").Inc()
	return json.Unmarshal(body, out)
}

// CreateOrder opens a PayPal order for the given amount and returns the
// approval link the user must visit.
func (c *Client) CreateOrder(amount float64, currency string) (*CreatedOrder, error) {
	accessToken, err := c.token()
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"amount": map[string]any{
					"currency_code": currency,
					"value":         fmt.Sprintf("%.2f", amount),
				},
			},
		},
	}

	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.post("/v2/checkout/orders", accessToken, payload, &out); err != nil {
		return nil, err
	}

	created := &CreatedOrder{ID: out.ID}
	for _, link := range out.Links {
		if link.Rel == "approve" {
			created.ApprovalURL = link.Href
		}
	}
	return created, nil
}

// CaptureOrder captures a previously approved order.
func (c *Client) CaptureOrder(orderID string) (*CaptureResult, error) {
	accessToken, err := c.token()
	if err != nil {
		return nil, err
	}

	var out struct {
		Status string `json:"status"`
		Payer  struct {
			PayerID string `json:"payer_id"`
		} `json:"payer"`
	}
	if err := c.post("/v2/checkout/orders/"+orderID+"/capture", accessToken, map[string]any{}, &out); err != nil {
		return nil, err
	}

	return &CaptureResult{Status: out.Status, PayerID: out.Payer.PayerID}, nil
}
