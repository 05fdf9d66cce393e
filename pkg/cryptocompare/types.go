package cryptocompare

// Prices maps an upper-case symbol to its price in the requested currency.
// Symbols the provider could not price are absent.
type Prices map[string]float64
