package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/infrastructure/metrics"
)

const DefaultRestURL = "https://api.binance.com"

// TickerClient Binance 最新成交价 REST 客户端
type TickerClient struct {
	baseURL string
	client  *http.Client
}

// TickerPriceResp Binance 最新价响应
type TickerPriceResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func NewTickerClient(baseURL string) *TickerClient {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	return &TickerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Quote accepts "BINANCE:ETHUSDT" or "ETHUSDT".
func (c *TickerClient) Quote(ctx context.Context, symbol string) (float64, error) {
	resp, err := c.GetTickerPrice(ctx, symbol)
	if err == nil {
		var px float64
		px, err = strconv.ParseFloat(resp.Price, 64)
		if err == nil {
			metrics.RecordQuoteFetch(nil)
			return px, nil
		}
	}
	metrics.RecordQuoteFetch(err)
	return 0, err
}

// GetTickerPrice 获取单个交易对最新价
func (c *TickerClient) GetTickerPrice(ctx context.Context, symbol string) (*TickerPriceResp, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndex(symbol, ":"); i >= 0 {
		symbol = symbol[i+1:]
	}

	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance api error: %d %s", resp.StatusCode, string(body))
	}

	var result TickerPriceResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

var _ port.Quoter = (*TickerClient)(nil)
