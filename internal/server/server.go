// Package server exposes the dashboard over HTTP: the currency catalog,
// the followed set, the live price series and recommendations.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"cryptoboard/internal/advisor"
	"cryptoboard/internal/market"
	"cryptoboard/internal/monitor"
	"cryptoboard/internal/selection"
	"cryptoboard/internal/series"

	"go.uber.org/zap"
)

type Catalog interface {
	Search(ctx context.Context, term string) ([]market.Coin, error)
	Find(ctx context.Context, id string) (market.Coin, bool, error)
	Quote(ctx context.Context, id string) (market.Quote, error)
}

type Selection interface {
	IDs() []string
	Toggle(ctx context.Context, id string) (selection.Result, error)
}

type SeriesSource interface {
	CurrentSeries() map[string]series.Series
	Timestamps() []time.Time
	MaxPoints() int
}

type Advisor interface {
	Recommend(ctx context.Context, id, name string) advisor.Recommendation
	RecommendAll(ctx context.Context, targets []advisor.Target) []advisor.Recommendation
}

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Catalog   Catalog
	Selection Selection
	Series    SeriesSource
	Advisor   Advisor
	Store     Pinger
}

type Server struct {
	catalog   Catalog
	selection Selection
	series    SeriesSource
	advisor   Advisor
	store     Pinger
	hub       *hub
	logger    *zap.Logger
	now       func() time.Time
}

func New(deps Deps, logger *zap.Logger) *Server {
	return &Server{
		catalog:   deps.Catalog,
		selection: deps.Selection,
		series:    deps.Series,
		advisor:   deps.Advisor,
		store:     deps.Store,
		hub:       newHub(logger.Named("live")),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.addRoutes(mux)
	return s.logRequests(mux)
}

func (s *Server) addRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/currencies", s.handleCurrencies)
	mux.HandleFunc("GET /api/currencies/{id}/quote", s.handleQuote)
	mux.HandleFunc("GET /api/followed", s.handleFollowed)
	mux.HandleFunc("POST /api/followed/{id}/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("POST /api/recommendations/{id}", s.handleRecommend)
	mux.HandleFunc("POST /api/recommendations", s.handleRecommendAll)
	mux.HandleFunc("GET /api/live", s.handleLive)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Publish forwards a monitor cycle to live clients. It never blocks on a
// slow client.
func (s *Server) Publish(u monitor.Update) {
	if s.hub.count() == 0 {
		return
	}
	s.hub.broadcast(newLiveMessage(u, s.series))
}

// Close disconnects every live client.
func (s *Server) Close() {
	s.hub.closeAll()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
