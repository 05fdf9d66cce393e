package market

// Coin is one entry of the top-currency list.
type Coin struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Image          string  `json:"image,omitempty"`
	CurrentPrice   float64 `json:"currentPrice"`
	MarketCap      float64 `json:"marketCap"`
	MarketCapRank  int     `json:"marketCapRank"`
	TotalVolume    float64 `json:"totalVolume"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// Metrics is the input to a buy / do-not-buy recommendation.
type Metrics struct {
	Name            string
	CurrentPriceUSD float64
	MarketCapUSD    float64
	Volume24hUSD    float64
	Change30d       float64 // percent
	Change60d       float64 // percent
	Change200d      float64 // percent
}

// Quote is a coin's current price in the three display currencies.
type Quote struct {
	USD float64 `json:"usd"`
	EUR float64 `json:"eur"`
	ILS float64 `json:"ils"`
}
