package coingecko

// Market is one row of /coins/markets.
type Market struct {
	ID                       string   `json:"id"`                          // e.g., "bitcoin"
	Symbol                   string   `json:"symbol"`                      // e.g., "btc"
	Name                     string   `json:"name"`                        // e.g., "Bitcoin"
	Image                    string   `json:"image"`                       // logo URL
	CurrentPrice             *float64 `json:"current_price"`               // may be null for illiquid coins
	MarketCap                *float64 `json:"market_cap"`                  // in vs_currency
	MarketCapRank            *int     `json:"market_cap_rank"`             // 1-based
	TotalVolume              *float64 `json:"total_volume"`                // 24h volume
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"` // percent
}

// Coin is the subset of /coins/{id} this service reads.
type Coin struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Name       string      `json:"name"`
	MarketData *MarketData `json:"market_data"`
}

// MarketData values are keyed by lower-case currency code ("usd", "eur", "ils").
type MarketData struct {
	CurrentPrice                        map[string]float64 `json:"current_price"`
	MarketCap                           map[string]float64 `json:"market_cap"`
	TotalVolume                         map[string]float64 `json:"total_volume"`
	PriceChangePercentage30dInCurrency  map[string]float64 `json:"price_change_percentage_30d_in_currency"`
	PriceChangePercentage60dInCurrency  map[string]float64 `json:"price_change_percentage_60d_in_currency"`
	PriceChangePercentage200dInCurrency map[string]float64 `json:"price_change_percentage_200d_in_currency"`
}
