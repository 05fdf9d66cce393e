package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrUnexpectedStatus  = errors.New("coingecko: unexpected status")
	ErrMalformedResponse = errors.New("coingecko: malformed response")
)

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Markets fetches the first page of coins ordered by market cap, priced in vsCurrency.
func (c *RESTClient) Markets(ctx context.Context, vsCurrency string) ([]Market, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	endpoint := c.baseURL + "/coins/markets?" + q.Encode()

	var markets []Market
	if err := c.get(ctx, endpoint, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// Coin fetches market details for a single coin id, without tickers or community data.
func (c *RESTClient) Coin(ctx context.Context, id string) (*Coin, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")
	endpoint := c.baseURL + "/coins/" + url.PathEscape(id) + "?" + q.Encode()

	var coin Coin
	if err := c.get(ctx, endpoint, &coin); err != nil {
		return nil, err
	}
	return &coin, nil
}

func (c *RESTClient) get(ctx context.Context, endpoint string, out any) error {
	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
