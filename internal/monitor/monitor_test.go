package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cryptoboard/internal/series"
	"cryptoboard/pkg/cryptocompare"

	"go.uber.org/zap"
)

type fakeSelection struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeSelection) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func (f *fakeSelection) set(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
}

type fakeSymbols map[string]string

func (f fakeSymbols) Symbols(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if s, ok := f[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakePrices struct {
	mu      sync.Mutex
	prices  cryptocompare.Prices
	err     error
	calls   int
	symbols []string
	block   chan struct{} // when set, PriceMulti waits on it
}

func (f *fakePrices) PriceMulti(ctx context.Context, symbols []string, currency string) (cryptocompare.Prices, error) {
	f.mu.Lock()
	f.calls++
	f.symbols = symbols
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.prices, f.err
}

var symbols = fakeSymbols{"bitcoin": "BTC", "ethereum": "ETH", "ripple": "XRP", "bitcoin-bep2": "BTC"}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestMonitor(sel Selection, prices PriceSource) (*Monitor, *series.Aggregator) {
	agg := series.NewAggregator(series.DefaultMaxPoints)
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := New(sel, symbols, prices, agg, Options{Now: c.now}, zap.NewNop())
	return m, agg
}

// go test -v --run ^TestRunOnceRecordsByID$
func TestRunOnceRecordsByID(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin", "ethereum"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 50000, "ETH": 3000}}
	m, agg := newTestMonitor(sel, prices)

	u, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Err != nil || u.Reset || u.CycleID == "" {
		t.Fatalf("unexpected update: %+v", u)
	}
	if u.Prices["bitcoin"] != 50000 || u.Prices["ethereum"] != 3000 {
		t.Errorf("expected prices keyed by id, got %v", u.Prices)
	}
	if strings.Join(prices.symbols, ",") != "BTC,ETH" {
		t.Errorf("expected symbols in followed order, got %v", prices.symbols)
	}

	cur := agg.CurrentSeries()
	if len(cur) != 2 || cur["bitcoin"].Points[0] != 50000 {
		t.Errorf("unexpected series: %v", cur)
	}
	if !cur["bitcoin"].Timestamps[0].Equal(u.At) {
		t.Errorf("expected cycle time on the axis")
	}
}

// go test -v --run ^TestRunOnceMissingPriceDoesNotGrow$
func TestRunOnceMissingPriceDoesNotGrow(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin", "ripple", "unlisted"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 1}}
	m, agg := newTestMonitor(sel, prices)

	m.RunOnce(context.Background())

	prices.prices = cryptocompare.Prices{"BTC": 2, "XRP": 0.5}
	m.RunOnce(context.Background())

	cur := agg.CurrentSeries()
	if agg.Len() != 2 {
		t.Fatalf("expected 2 timestamps, got %d", agg.Len())
	}
	if len(cur["ripple"].Points) != 1 || !cur["ripple"].Timestamps[0].Equal(agg.Timestamps()[1]) {
		t.Errorf("expected ripple right-aligned to the newest timestamp, got %+v", cur["ripple"])
	}
	if _, ok := cur["unlisted"]; ok {
		t.Error("ids without a symbol must not get a series")
	}
}

// go test -v --run ^TestRunOnceKeepsUnfollowedSeries$
func TestRunOnceKeepsUnfollowedSeries(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin", "ethereum"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 50000, "ETH": 3000}}
	m, agg := newTestMonitor(sel, prices)

	m.RunOnce(context.Background())

	sel.set("bitcoin")
	m.RunOnce(context.Background())

	if strings.Join(prices.symbols, ",") != "BTC" {
		t.Errorf("expected only the followed symbol to be fetched, got %v", prices.symbols)
	}

	cur := agg.CurrentSeries()
	eth, ok := cur["ethereum"]
	if !ok {
		t.Fatal("unfollowed series was pruned")
	}
	if len(eth.Points) != 1 || eth.Points[0] != 3000 {
		t.Errorf("expected ethereum to keep its single point, got %v", eth.Points)
	}
	ts := agg.Timestamps()
	if len(ts) != 2 || !eth.Timestamps[0].Equal(ts[len(ts)-1]) {
		t.Errorf("expected ethereum right-aligned to the newest timestamp %v, got %v", ts, eth.Timestamps)
	}
	if len(cur["bitcoin"].Points) != 2 {
		t.Errorf("expected bitcoin to grow, got %v", cur["bitcoin"].Points)
	}
}

// go test -v --run ^TestRunOnceSharedSymbolFetchedOnce$
func TestRunOnceSharedSymbolFetchedOnce(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin", "bitcoin-bep2", "ethereum"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 50000, "ETH": 3000}}
	m, agg := newTestMonitor(sel, prices)

	u, _ := m.RunOnce(context.Background())

	if strings.Join(prices.symbols, ",") != "BTC,ETH" {
		t.Errorf("expected each symbol requested once, got %v", prices.symbols)
	}
	if len(u.Prices) != 2 || u.Prices["bitcoin"] != 50000 || u.Prices["ethereum"] != 3000 {
		t.Errorf("expected the earliest followed id to own the shared symbol, got %v", u.Prices)
	}
	if _, ok := agg.CurrentSeries()["bitcoin-bep2"]; ok {
		t.Error("an id sharing a claimed symbol must not get a series")
	}
}

// go test -v --run ^TestRunOnceEmptySelectionResets$
func TestRunOnceEmptySelectionResets(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 1}}
	m, agg := newTestMonitor(sel, prices)

	m.RunOnce(context.Background())
	if agg.Len() != 1 {
		t.Fatalf("expected one recorded cycle, got %d", agg.Len())
	}

	sel.set()
	u, _ := m.RunOnce(context.Background())
	if !u.Reset {
		t.Error("expected a reset update")
	}
	if agg.Len() != 0 || len(agg.CurrentSeries()) != 0 {
		t.Error("expected aggregator to be cleared")
	}
	if prices.calls != 1 {
		t.Errorf("expected no fetch for an empty selection, got %d calls", prices.calls)
	}
}

// go test -v --run ^TestRunOnceFetchErrorLeavesSeries$
func TestRunOnceFetchErrorLeavesSeries(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 1}}
	m, agg := newTestMonitor(sel, prices)

	var got []Update
	m.Subscribe(func(u Update) { got = append(got, u) })

	m.RunOnce(context.Background())

	prices.err = cryptocompare.ErrUnexpectedStatus
	u, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("fetch failures must not be returned as errors: %v", err)
	}
	if !errors.Is(u.Err, cryptocompare.ErrUnexpectedStatus) {
		t.Errorf("expected wrapped fetch error, got %v", u.Err)
	}
	if agg.Len() != 1 {
		t.Errorf("expected series untouched after a failed cycle, got %d timestamps", agg.Len())
	}
	if len(got) != 2 || got[1].Err == nil {
		t.Errorf("expected both cycles to be published, got %+v", got)
	}
}

// go test -v --run ^TestRunOnceNeverOverlaps$
func TestRunOnceNeverOverlaps(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 1}, block: make(chan struct{})}
	m, agg := newTestMonitor(sel, prices)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.RunOnce(context.Background())
	}()

	// wait until the first cycle is inside the fetch
	deadline := time.Now().Add(2 * time.Second)
	for {
		prices.mu.Lock()
		calls := prices.calls
		prices.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first cycle never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := m.RunOnce(context.Background()); !errors.Is(err, ErrCycleInFlight) {
		t.Errorf("expected ErrCycleInFlight, got %v", err)
	}

	close(prices.block)
	<-done

	if agg.Len() != 1 {
		t.Errorf("expected exactly one recorded cycle, got %d", agg.Len())
	}
}

// go test -v --run ^TestStartStop$
func TestStartStop(t *testing.T) {
	sel := &fakeSelection{ids: []string{"bitcoin"}}
	prices := &fakePrices{prices: cryptocompare.Prices{"BTC": 1}}
	m, agg := newTestMonitor(sel, prices)

	ticked := make(chan struct{}, 1)
	m.Subscribe(func(Update) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-ticked:
	case <-time.After(3 * time.Second):
		t.Fatal("no scheduled cycle within 3s")
	}
	m.Stop()

	n := agg.Len()
	time.Sleep(1500 * time.Millisecond)
	if agg.Len() != n {
		t.Errorf("cycles kept running after Stop: %d -> %d", n, agg.Len())
	}
}
