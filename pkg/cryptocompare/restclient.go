package cryptocompare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnexpectedStatus  = errors.New("cryptocompare: unexpected status")
	ErrMalformedResponse = errors.New("cryptocompare: malformed response")
	ErrAPI               = errors.New("cryptocompare: api error")
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

// PriceMulti fetches the current price of every symbol in a single
// /data/pricemulti call, quoted in currency (e.g. "USD").
func (c *RESTClient) PriceMulti(ctx context.Context, symbols []string, currency string) (Prices, error) {
	if len(symbols) == 0 {
		return Prices{}, nil
	}

	q := url.Values{}
	q.Set("fsyms", strings.Join(symbols, ","))
	q.Set("tsyms", currency)
	endpoint := c.baseURL + "/data/pricemulti?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, body)
	}

	// Delay decoding: the body is either an error envelope or symbol -> {currency: price}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if _, ok := raw["Response"]; ok {
		var message string
		_ = json.Unmarshal(raw["Message"], &message)
		return nil, fmt.Errorf("%w: %s", ErrAPI, message)
	}

	currency = strings.ToUpper(currency)
	prices := make(Prices, len(raw))
	for symbol, msg := range raw {
		var quotes map[string]float64
		if err := json.Unmarshal(msg, &quotes); err != nil {
			return nil, fmt.Errorf("%w: symbol %s: %v", ErrMalformedResponse, symbol, err)
		}
		if price, ok := quotes[currency]; ok {
			prices[strings.ToUpper(symbol)] = price
		}
	}
	return prices, nil
}
