package market

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cryptoboard/pkg/coingecko"

	"go.uber.org/zap"
)

// Provider is the market-data API the catalog reads from.
type Provider interface {
	Markets(ctx context.Context, vsCurrency string) ([]coingecko.Market, error)
	Coin(ctx context.Context, id string) (*coingecko.Coin, error)
}

// Catalog serves the top-currency list. The list is fetched once and kept
// for the life of the process; per-coin details are always fetched fresh.
type Catalog struct {
	provider Provider
	currency string
	logger   *zap.Logger

	mu    sync.Mutex
	coins []Coin
}

func NewCatalog(provider Provider, currency string, logger *zap.Logger) *Catalog {
	return &Catalog{
		provider: provider,
		currency: strings.ToLower(currency),
		logger:   logger,
	}
}

// Currencies returns the cached list, fetching it on first use. A failed
// fetch is not cached, so the next call retries.
func (c *Catalog) Currencies(ctx context.Context) ([]Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.coins != nil {
		return slices.Clone(c.coins), nil
	}

	markets, err := c.provider.Markets(ctx, c.currency)
	if err != nil {
		return nil, fmt.Errorf("load currency list: %w", err)
	}

	coins := make([]Coin, 0, len(markets))
	for _, m := range markets {
		coins = append(coins, fromMarket(m))
	}
	c.coins = coins
	c.logger.Info("loaded currency list", zap.Int("count", len(coins)))

	return slices.Clone(coins), nil
}

// Search filters the list by a case-insensitive substring of name or symbol.
func (c *Catalog) Search(ctx context.Context, term string) ([]Coin, error) {
	coins, err := c.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(coins, term), nil
}

// Find looks up a listed coin by id.
func (c *Catalog) Find(ctx context.Context, id string) (Coin, bool, error) {
	coins, err := c.Currencies(ctx)
	if err != nil {
		return Coin{}, false, err
	}
	i := slices.IndexFunc(coins, func(coin Coin) bool { return coin.ID == id })
	if i < 0 {
		return Coin{}, false, nil
	}
	return coins[i], true, nil
}

// Symbols maps each listed id to its upper-case ticker symbol. Ids that are
// not in the list are left out.
func (c *Catalog) Symbols(ctx context.Context, ids []string) (map[string]string, error) {
	coins, err := c.Currencies(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(ids))
	for _, coin := range coins {
		if coin.Symbol != "" && slices.Contains(ids, coin.ID) {
			out[coin.ID] = strings.ToUpper(coin.Symbol)
		}
	}
	return out, nil
}

// Metrics fetches the figures a recommendation is based on, in USD.
// Fields the provider leaves out are zero; the name falls back to the id.
func (c *Catalog) Metrics(ctx context.Context, id string) (Metrics, error) {
	coin, err := c.provider.Coin(ctx, id)
	if err != nil {
		return Metrics{}, fmt.Errorf("load details for %s: %w", id, err)
	}

	m := Metrics{Name: coin.Name}
	if m.Name == "" {
		m.Name = id
	}
	if md := coin.MarketData; md != nil {
		m.CurrentPriceUSD = md.CurrentPrice["usd"]
		m.MarketCapUSD = md.MarketCap["usd"]
		m.Volume24hUSD = md.TotalVolume["usd"]
		m.Change30d = md.PriceChangePercentage30dInCurrency["usd"]
		m.Change60d = md.PriceChangePercentage60dInCurrency["usd"]
		m.Change200d = md.PriceChangePercentage200dInCurrency["usd"]
	}
	return m, nil
}

// Quote fetches the current price of id in USD, EUR and ILS.
func (c *Catalog) Quote(ctx context.Context, id string) (Quote, error) {
	coin, err := c.provider.Coin(ctx, id)
	if err != nil {
		return Quote{}, fmt.Errorf("load quote for %s: %w", id, err)
	}
	if coin.MarketData == nil {
		return Quote{}, fmt.Errorf("load quote for %s: no market data", id)
	}
	prices := coin.MarketData.CurrentPrice
	return Quote{USD: prices["usd"], EUR: prices["eur"], ILS: prices["ils"]}, nil
}

func fromMarket(m coingecko.Market) Coin {
	return Coin{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Name:           m.Name,
		Image:          m.Image,
		CurrentPrice:   deref(m.CurrentPrice),
		MarketCap:      deref(m.MarketCap),
		MarketCapRank:  deref(m.MarketCapRank),
		TotalVolume:    deref(m.TotalVolume),
		PriceChange24h: deref(m.PriceChangePercentage24h),
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
