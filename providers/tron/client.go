package tron

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"acczen/metrics"

	"github.com/shopspring/decimal"
)

// TransferInfo is the subset of the explorer response the deposit flow
// needs: whether the transfer confirmed and where the tokens went.
type TransferInfo struct {
	Hash            string
	Confirmed       bool
	ContractAddress string
	From            string
	To              string
	Symbol          string
	Amount          decimal.Decimal
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: os.Getenv("TRON_API_URL"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) GetTransactionInfo(hash string) (*TransferInfo, error) {
	reqURL := fmt.Sprintf("%s/api/transaction-info?hash=%s", c.BaseURL, hash)

	resp, err := c.HTTP.Get(reqURL)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("tron", "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("tron", "error").Inc()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ExternalRequestsTotal.WithLabelValues("tron", "error").Inc()
		return nil, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var raw struct {
		Hash              string `json:"hash"`
		Confirmed         bool   `json:"confirmed"`
		ContractRet       string `json:"contractRet"`
		TRC20TransferInfo []struct {
			ContractAddress string `json:"contract_address"`
			FromAddress     string `json:"from_address"`
			ToAddress       string `json:"to_address"`
			Symbol          string `json:"symbol"`
			Decimals        int32  `json:"decimals"`
			AmountStr       string `json:"amount_str"`
		} `json:"trc20TransferInfo"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		metrics.ExternalRequestsTotal.WithLabelValues("tron", "error").Inc()
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	metrics.ExternalRequestsTotal.WithLabelValues("tron", "ok").Inc()

	if len(raw.TRC20TransferInfo) == 0 {
		return nil, fmt.Errorf("no TRC20 transfer in transaction %s", hash)
	}

	transfer := raw.TRC20TransferInfo[0]
	amountRaw, err := decimal.NewFromString(transfer.AmountStr)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", transfer.AmountStr, err)
	}

	return &TransferInfo{
		Hash:            raw.Hash,
		Confirmed:       raw.Confirmed && raw.ContractRet == "SUCCESS",
		ContractAddress: transfer.ContractAddress,
		From:            transfer.FromAddress,
		To:              transfer.ToAddress,
		Symbol:          transfer.Symbol,
		Amount:          amountRaw.Shift(-transfer.Decimals),
	}, nil
}
