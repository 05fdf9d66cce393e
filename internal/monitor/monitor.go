// Package monitor polls live prices for the followed coins on a fixed
// interval and feeds them into the rolling series.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cryptoboard/internal/series"
	"cryptoboard/pkg/cryptocompare"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrCycleInFlight is returned by RunOnce when another cycle has not finished.
var ErrCycleInFlight = errors.New("monitor: cycle already in flight")

// Selection reports the currently followed coin ids.
type Selection interface {
	IDs() []string
}

// SymbolResolver maps coin ids to the ticker symbols the price source uses.
type SymbolResolver interface {
	Symbols(ctx context.Context, ids []string) (map[string]string, error)
}

// PriceSource returns the latest price per symbol.
type PriceSource interface {
	PriceMulti(ctx context.Context, symbols []string, currency string) (cryptocompare.Prices, error)
}

// Update describes the outcome of one cycle.
type Update struct {
	CycleID string
	At      time.Time
	Prices  map[string]float64 // keyed by coin id
	Reset   bool               // nothing is followed; the series were cleared
	Err     error              // fetch failed; the series were left untouched
}

type Options struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	Currency     string
	Now          func() time.Time
}

type Monitor struct {
	selection Selection
	symbols   SymbolResolver
	prices    PriceSource
	agg       *series.Aggregator
	opts      Options
	logger    *zap.Logger

	busy sync.Mutex // held for the duration of a cycle

	subMu       sync.RWMutex
	subscribers []func(Update)

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New(sel Selection, symbols SymbolResolver, prices PriceSource, agg *series.Aggregator,
	opts Options, logger *zap.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 5 * time.Second
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Monitor{
		selection: sel,
		symbols:   symbols,
		prices:    prices,
		agg:       agg,
		opts:      opts,
		logger:    logger,
	}
}

// Subscribe registers fn to be called after every completed cycle. fn runs on
// the polling goroutine and must not block.
func (m *Monitor) Subscribe(fn func(Update)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Start schedules a cycle every Interval. A tick that fires while the
// previous cycle is still running is skipped.
func (m *Monitor) Start(ctx context.Context) error {
	cl := newCronLogger(m.logger)
	m.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	m.ctx, m.cancel = context.WithCancel(ctx)

	schedule := fmt.Sprintf("@every %s", m.opts.Interval)
	if _, err := m.cron.AddFunc(schedule, m.tick); err != nil {
		m.cancel()
		return fmt.Errorf("schedule price cycle: %w", err)
	}

	m.cron.Start()
	m.logger.Info("monitor started", zap.Duration("interval", m.opts.Interval))
	return nil
}

// Stop halts the schedule and waits for an in-flight cycle to return.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	done := m.cron.Stop()
	m.cancel()
	<-done.Done()
	m.logger.Info("monitor stopped")
}

func (m *Monitor) tick() {
	if _, err := m.RunOnce(m.ctx); err != nil {
		m.logger.Debug("skipped price cycle", zap.Error(err))
	}
}

// RunOnce performs a single fetch-then-record cycle. The only error it
// returns is ErrCycleInFlight; fetch failures are reported in Update.Err.
func (m *Monitor) RunOnce(ctx context.Context) (Update, error) {
	if !m.busy.TryLock() {
		return Update{}, ErrCycleInFlight
	}
	defer m.busy.Unlock()

	u := m.cycle(ctx)
	m.publish(u)
	return u, nil
}

func (m *Monitor) cycle(ctx context.Context) Update {
	u := Update{CycleID: uuid.NewString()}
	log := m.logger.With(zap.String("cycle", u.CycleID))

	ids := m.selection.IDs()
	if len(ids) == 0 {
		m.agg.Reset()
		u.At = m.opts.Now()
		u.Reset = true
		return u
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.CycleTimeout)
	defer cancel()

	snapshot, err := m.fetch(ctx, ids)
	u.At = m.opts.Now()
	if err != nil {
		log.Warn("price cycle failed", zap.Strings("ids", ids), zap.Error(err))
		u.Err = err
		return u
	}

	m.agg.RecordCycle(snapshot, u.At)
	u.Prices = snapshot
	log.Debug("price cycle recorded", zap.Int("prices", len(snapshot)))
	return u
}

// fetch returns the latest prices keyed by coin id. Ids without a known
// symbol or without a quoted price are left out. The price source quotes by
// symbol, so when several followed ids share one, only the earliest followed
// id gets the price.
func (m *Monitor) fetch(ctx context.Context, ids []string) (map[string]float64, error) {
	symbols, err := m.symbols.Symbols(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve symbols: %w", err)
	}

	owner := make(map[string]string, len(symbols)) // symbol -> id
	list := make([]string, 0, len(symbols))
	for _, id := range ids {
		sym, ok := symbols[id]
		if !ok {
			continue
		}
		if first, taken := owner[sym]; taken {
			m.logger.Debug("symbol already claimed by another followed id",
				zap.String("id", id), zap.String("symbol", sym), zap.String("owner", first))
			continue
		}
		owner[sym] = id
		list = append(list, sym)
	}

	prices, err := m.prices.PriceMulti(ctx, list, m.opts.Currency)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	snapshot := make(map[string]float64, len(list))
	for sym, id := range owner {
		if p, ok := prices[sym]; ok {
			snapshot[id] = p
		}
	}
	return snapshot, nil
}

func (m *Monitor) publish(u Update) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, fn := range m.subscribers {
		fn(u)
	}
}
