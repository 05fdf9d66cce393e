package series

import (
	"math"
	"slices"
	"time"
)

// CandleSizes are the supported candle widths, in points per candle.
var CandleSizes = []int{1, 5, 15, 60}

// Candle summarizes consecutive points. Time is the timestamp of the last
// point in the candle.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

func ValidCandleSize(size int) bool {
	return slices.Contains(CandleSizes, size)
}

// Candles groups s into chunks of size points, oldest first. Gap points are
// ignored; a chunk made only of gaps produces no candle.
func Candles(s Series, size int) []Candle {
	if size <= 0 {
		return nil
	}

	var out []Candle
	for start := 0; start < len(s.Points); start += size {
		end := min(start+size, len(s.Points))

		c := Candle{Time: s.Timestamps[end-1], High: math.Inf(-1), Low: math.Inf(1)}
		seen := false
		for _, v := range s.Points[start:end] {
			if math.IsNaN(v) {
				continue
			}
			if !seen {
				c.Open = v
				seen = true
			}
			c.Close = v
			c.High = math.Max(c.High, v)
			c.Low = math.Min(c.Low, v)
		}
		if seen {
			out = append(out, c)
		}
	}
	return out
}
