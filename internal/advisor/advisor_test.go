package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cryptoboard/internal/market"

	"go.uber.org/zap"
)

type fakeMetrics map[string]market.Metrics

func (f fakeMetrics) Metrics(_ context.Context, id string) (market.Metrics, error) {
	m, ok := f[id]
	if !ok {
		return market.Metrics{}, errors.New("not found")
	}
	return m, nil
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
	user  string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.user = user
	return f.reply, f.err
}

var testMetrics = fakeMetrics{
	"bitcoin": {
		Name:            "Bitcoin",
		CurrentPriceUSD: 50000.456,
		MarketCapUSD:    987654321012.7,
		Volume24hUSD:    30000000000,
		Change30d:       12.345,
		Change60d:       -3.1,
	},
}

// go test -v --run ^TestRecommendBuy$
func TestRecommendBuy(t *testing.T) {
	c := &fakeCompleter{reply: `{"recommendation":"Buy","rationale":"Strong momentum."}`}
	a := New(testMetrics, c, 0, zap.NewNop())

	rec := a.Recommend(context.Background(), "bitcoin", "")
	if rec.Verdict != Buy || rec.Rationale != "Strong momentum." || rec.Failed {
		t.Errorf("unexpected recommendation: %+v", rec)
	}
	if rec.CurrencyID != "bitcoin" || rec.CurrencyName != "Bitcoin" {
		t.Errorf("expected id and name from metrics, got %+v", rec)
	}
}

// go test -v --run ^TestUserPromptFormatting$
func TestUserPromptFormatting(t *testing.T) {
	c := &fakeCompleter{reply: `{"recommendation":"Do Not Buy","rationale":"Too volatile."}`}
	a := New(testMetrics, c, 0, zap.NewNop())
	a.Recommend(context.Background(), "bitcoin", "Bitcoin")

	for _, want := range []string{
		"Currency: Bitcoin",
		"Current Price (USD): $50,000.46",
		"Market Cap (USD): $987,654,321,013",
		"24h Volume (USD): $30,000,000,000",
		"30-Day Price Change: 12.35%",
		"60-Day Price Change: -3.10%",
		"200-Day Price Change: 0.00%",
	} {
		if !strings.Contains(c.user, want) {
			t.Errorf("prompt missing %q:\n%s", want, c.user)
		}
	}
}

// go test -v --run ^TestRecommendDefaults$
func TestRecommendDefaults(t *testing.T) {
	cases := []struct {
		name      string
		completer *fakeCompleter
	}{
		{"completion error", &fakeCompleter{err: errors.New("rate limited")}},
		{"malformed json", &fakeCompleter{reply: `not json`}},
		{"unknown verdict", &fakeCompleter{reply: `{"recommendation":"Hold","rationale":"Wait."}`}},
		{"empty rationale", &fakeCompleter{reply: `{"recommendation":"Buy"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New(testMetrics, tc.completer, 0, zap.NewNop())
			rec := a.Recommend(context.Background(), "bitcoin", "Bitcoin")
			if rec.Verdict != DoNotBuy || rec.Rationale != defaultRationale || rec.Failed {
				t.Errorf("expected default recommendation, got %+v", rec)
			}
		})
	}
}

// go test -v --run ^TestRecommendMetricsFailure$
func TestRecommendMetricsFailure(t *testing.T) {
	c := &fakeCompleter{reply: `{"recommendation":"Buy","rationale":"x"}`}
	a := New(testMetrics, c, 0, zap.NewNop())

	rec := a.Recommend(context.Background(), "unknown", "Unknown")
	if !rec.Failed || rec.Rationale != failedRationale || rec.Verdict != DoNotBuy {
		t.Errorf("expected failed recommendation, got %+v", rec)
	}
	if c.calls != 0 {
		t.Errorf("completer should not be called without metrics, got %d calls", c.calls)
	}
}

// go test -v --run ^TestRecommendAll$
func TestRecommendAll(t *testing.T) {
	c := &fakeCompleter{reply: `{"recommendation":"Buy","rationale":"ok"}`}
	a := New(testMetrics, c, time.Millisecond, zap.NewNop())

	recs := a.RecommendAll(context.Background(), []Target{
		{ID: "bitcoin", Name: "Bitcoin"},
		{ID: "unknown", Name: "Unknown"},
	})
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Verdict != Buy || !recs[1].Failed {
		t.Errorf("unexpected recommendations: %+v", recs)
	}
}

// go test -v --run ^TestRecommendAllCancelled$
func TestRecommendAllCancelled(t *testing.T) {
	c := &fakeCompleter{reply: `{"recommendation":"Buy","rationale":"ok"}`}
	a := New(testMetrics, c, time.Hour, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	recs := a.RecommendAll(ctx, []Target{{ID: "bitcoin"}, {ID: "bitcoin"}, {ID: "bitcoin"}})
	if len(recs) != 1 {
		t.Errorf("expected to stop after the first request, got %d", len(recs))
	}
}
