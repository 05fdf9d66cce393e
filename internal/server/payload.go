package server

import (
	"math"
	"time"

	"cryptoboard/internal/monitor"
	"cryptoboard/internal/series"
)

// seriesPayload is the chart view. Gap points are encoded as null since
// JSON has no NaN.
type seriesPayload struct {
	Timestamps []time.Time            `json:"timestamps"`
	MaxPoints  int                    `json:"maxPoints"` // width of the chart window
	Series     map[string]seriesEntry `json:"series"`
	Range      *displayRange          `json:"range,omitempty"`
	CandleSize int                    `json:"candleSize,omitempty"`
}

type seriesEntry struct {
	Points     []*float64      `json:"points"`
	Timestamps []time.Time     `json:"timestamps"`
	Candles    []series.Candle `json:"candles,omitempty"`
}

type displayRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// candleSize 0 leaves candles out.
func buildSeriesPayload(src SeriesSource, candleSize int) seriesPayload {
	all := src.CurrentSeries()

	p := seriesPayload{
		Timestamps: src.Timestamps(),
		MaxPoints:  src.MaxPoints(),
		Series:     make(map[string]seriesEntry, len(all)),
		CandleSize: candleSize,
	}
	if p.Timestamps == nil {
		p.Timestamps = []time.Time{}
	}

	for id, s := range all {
		e := seriesEntry{
			Points:     nullable(s.Points),
			Timestamps: s.Timestamps,
		}
		if candleSize > 0 {
			e.Candles = series.Candles(s, candleSize)
		}
		p.Series[id] = e
	}

	if lo, hi, ok := series.DisplayRange(all); ok {
		p.Range = &displayRange{Min: lo, Max: hi}
	}
	return p
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}

// liveMessage is pushed to every websocket client after each polling cycle.
type liveMessage struct {
	Type    string              `json:"type"` // "snapshot", "cycle", "reset" or "error"
	CycleID string              `json:"cycleId,omitempty"`
	At      time.Time           `json:"at"`
	Prices  map[string]*float64 `json:"prices,omitempty"`
	Error   string              `json:"error,omitempty"`
	Series  *seriesPayload      `json:"series,omitempty"`
}

func newLiveMessage(u monitor.Update, src SeriesSource) liveMessage {
	msg := liveMessage{CycleID: u.CycleID, At: u.At}

	switch {
	case u.Reset:
		msg.Type = "reset"
	case u.Err != nil:
		msg.Type = "error"
		msg.Error = u.Err.Error()
	default:
		msg.Type = "cycle"
		msg.Prices = make(map[string]*float64, len(u.Prices))
		for id, v := range u.Prices {
			msg.Prices[id] = nullable([]float64{v})[0]
		}
	}

	sp := buildSeriesPayload(src, 0)
	msg.Series = &sp
	return msg
}
