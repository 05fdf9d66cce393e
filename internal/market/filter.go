package market

import "strings"

// Filter keeps coins whose name or symbol contains term, ignoring case.
// An empty term keeps everything.
func Filter(coins []Coin, term string) []Coin {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return coins
	}

	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Symbol), term) {
			out = append(out, c)
		}
	}
	return out
}
