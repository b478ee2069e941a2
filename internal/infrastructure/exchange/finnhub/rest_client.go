package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/infrastructure/metrics"
)

const DefaultRestURL = "https://finnhub.io/api/v1"

// QuoteClient is the Finnhub REST quote client.
type QuoteClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// QuoteResp is the /quote response; only the fields we read.
type QuoteResp struct {
	Current   float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Open      float64 `json:"o"`
	PrevClose float64 `json:"pc"`
	Timestamp int64   `json:"t"`
}

func NewQuoteClient(baseURL, token string) *QuoteClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRestURL
	}
	return &QuoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Quote returns the current price of symbol.
func (c *QuoteClient) Quote(ctx context.Context, symbol string) (float64, error) {
	q, err := c.GetQuote(ctx, symbol)
	metrics.RecordQuoteFetch(err)
	if err != nil {
		return 0, err
	}
	return q.Current, nil
}

func (c *QuoteClient) GetQuote(ctx context.Context, symbol string) (*QuoteResp, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	endpoint := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Finnhub-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("finnhub api error: %d %s", resp.StatusCode, string(body))
	}

	var result QuoteResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &result, nil
}

var _ port.Quoter = (*QuoteClient)(nil)
