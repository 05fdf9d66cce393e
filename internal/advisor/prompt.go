package advisor

import (
	"fmt"

	"cryptoboard/internal/market"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const systemPrompt = `You are a financial advisor specializing in cryptocurrency market analysis.
Provide a clear, professional recommendation (Buy or Do Not Buy) for a given cryptocurrency based on market data.
Always respond in JSON format with exactly these fields:
{
  "recommendation": "Buy" or "Do Not Buy",
  "rationale": "A clear explanatory paragraph (2-3 sentences) detailing the logic behind the recommendation"
}`

func userPrompt(m market.Metrics) string {
	return fmt.Sprintf(`Please analyze the following cryptocurrency data and provide a buy/sell recommendation:

Currency: %s
Current Price (USD): $%s
Market Cap (USD): $%s
24h Volume (USD): $%s
30-Day Price Change: %s%%
60-Day Price Change: %s%%
200-Day Price Change: %s%%

Based on this data, should I buy or not buy this cryptocurrency?`,
		m.Name,
		money(m.CurrentPriceUSD, 2),
		money(m.MarketCapUSD, 0),
		money(m.Volume24hUSD, 0),
		percent(m.Change30d),
		percent(m.Change60d),
		percent(m.Change200d),
	)
}

// money rounds to at most places decimals and groups thousands: 1234.567 -> "1,234.57".
func money(v float64, places int32) string {
	rounded := decimal.NewFromFloat(v).Round(places).InexactFloat64()
	return humanize.CommafWithDigits(rounded, int(places))
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
