package taphoammo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"acczen/metrics"
)

// APIError is a coded failure reported by the reseller API itself
// (success == "false"). The code drives retry classification upstream.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

func (e *APIError) ErrorCode() string { return e.Code }

// apiBool parses the reseller convention of sending booleans as the
// strings "true"/"false". Plain JSON booleans are accepted too.
type apiBool bool

func (b *apiBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"true"`, `true`:
		*b = true
	case `"false"`, `false`:
		*b = false
	default:
		return &APIError{Code: "UNEXPECTED_RESPONSE", Description: "non-boolean success field: " + string(data)}
	}
	return nil
}

type Client struct {
	BaseURL   string
	UserToken string
	HTTP      *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL:   os.Getenv("TAPHOAMMO_API_URL"),
		UserToken: os.Getenv("TAPHOAMMO_USER_TOKEN"),
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type StockInfo struct {
	Name  string  `json:"name"`
	Stock int64   `json:"stock,string"`
	Price float64 `json:"price,string"`
}

type KioskProduct struct {
	KioskToken string  `json:"kiosk_token"`
	Name       string  `json:"name"`
	Stock      int64   `json:"stock,string"`
	Price      float64 `json:"price,string"`
}

type BuyResult struct {
	OrderID     string   `json:"order_id"`
	ProductKeys []string `json:"product_keys"`
}

func (c *Client) get(path string, params url.Values, out any) error {
	params.Set("userToken", c.UserToken)
	reqURL := fmt.Sprintf("%s/api/%s?%s", c.BaseURL, path, params.Encode())

	resp, err := c.HTTP.Get(reqURL)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "error").Inc()
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "error").Inc()
		return err
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "error").Inc()
		return &APIError{Code: "UNEXPECTED_RESPONSE", Description: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var envelope struct {
		Success     apiBool `json:"success"`
		Description string  `json:"description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "error").Inc()
		return &APIError{Code: "UNEXPECTED_RESPONSE", Description: err.Error()}
	}
	if !envelope.Success {
		metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "api_error").Inc()
		code := "API_ERROR"
		if envelope.Description != "" {
			code = envelope.Description
		}
		return &APIError{Code: code, Description: envelope.Description}
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "error").Inc()
		return &APIError{Code: "UNEXPECTED_RESPONSE", Description: err.Error()}
	}

	metrics.ExternalRequestsTotal.WithLabelValues("taphoammo", "ok").Inc()
	return nil
}

// GetStock reports the live stock of one kiosk.
func (c *Client) GetStock(kioskToken string) (*StockInfo, error) {
	params := url.Values{}
	params.Set("kioskToken", kioskToken)

	var out StockInfo
	if err := c.get("getStock", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BuyProducts places an order for quantity units against a kiosk. Keys may
// be returned inline or fetched later with GetOrderProducts.
func (c *Client) BuyProducts(kioskToken string, quantity int64, promotion string) (*BuyResult, error) {
	params := url.Values{}
	params.Set("kioskToken", kioskToken)
	params.Set("quantity", fmt.Sprintf("%d", quantity))
	if promotion != "" {
		params.Set("promotion", promotion)
	}

	var out BuyResult
	if err := c.get("buyProducts", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrderProducts fetches the fulfillment keys of a previously placed order.
// The reseller answers ORDER_IN_PROCESSING until the keys are ready.
func (c *Client) GetOrderProducts(orderID string) ([]string, error) {
	params := url.Values{}
	params.Set("orderId", orderID)

	var out struct {
		Data []struct {
			Product string `json:"product"`
		} `json:"data"`
	}
	if err := c.get("getProducts", params, &out); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(out.Data))
	for _, item := range out.Data {
		keys = append(keys, item.Product)
	}
	return keys, nil
}

// GetProducts lists the products of a kiosk for catalog import.
func (c *Client) GetProducts(kioskToken string) ([]KioskProduct, error) {
	params := url.Values{}
	params.Set("kioskToken", kioskToken)

	var out struct {
		Data []KioskProduct `json:"data"`
	}
	if err := c.get("getProducts", params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
