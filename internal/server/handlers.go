package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cryptoboard/internal/advisor"
	"cryptoboard/internal/series"

	"go.uber.org/zap"
)

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	coins, err := s.catalog.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, WrapError(err, "Failed to load currencies", http.StatusBadGateway))
		return
	}
	s.writeResponse(w, http.StatusOK, coins)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	q, err := s.catalog.Quote(r.Context(), id)
	if err != nil {
		s.writeError(w, WrapError(err, "Failed to load quote", http.StatusBadGateway))
		return
	}
	s.writeResponse(w, http.StatusOK, q)
}

func (s *Server) handleFollowed(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, map[string][]string{"ids": s.selection.IDs()})
}

// handleToggle answers 200 when the limit is reached; the client reads
// limitReached to show its own notice.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeError(w, WrapError(ErrInvalidInput, "Currency id must be provided", http.StatusBadRequest))
		return
	}

	res, err := s.selection.Toggle(r.Context(), id)
	if err != nil {
		s.writeError(w, WrapError(err, "Failed to save followed currencies", http.StatusInternalServerError))
		return
	}

	s.logger.Info("followed set changed",
		zap.String("id", id),
		zap.Strings("ids", res.IDs),
		zap.Bool("limitReached", res.LimitReached),
	)
	s.writeResponse(w, http.StatusOK, res)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("candle"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !series.ValidCandleSize(n) {
			msg := fmt.Sprintf("candle must be one of %v", series.CandleSizes)
			s.writeError(w, WrapError(ErrInvalidInput, msg, http.StatusBadRequest))
			return
		}
		size = n
	}
	s.writeResponse(w, http.StatusOK, buildSeriesPayload(s.series, size))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec := s.advisor.Recommend(r.Context(), id, s.coinName(r.Context(), id))
	s.writeResponse(w, http.StatusOK, rec)
}

// handleRecommendAll covers every followed currency, in followed order.
func (s *Server) handleRecommendAll(w http.ResponseWriter, r *http.Request) {
	ids := s.selection.IDs()
	targets := make([]advisor.Target, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, advisor.Target{ID: id, Name: s.coinName(r.Context(), id)})
	}
	s.writeResponse(w, http.StatusOK, s.advisor.RecommendAll(r.Context(), targets))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.writeError(w, WrapError(err, "Store unavailable", http.StatusServiceUnavailable))
		return
	}
	s.writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// coinName falls back to "" when the catalog cannot be read; the advisor
// then uses the name from the coin details.
func (s *Server) coinName(ctx context.Context, id string) string {
	coin, ok, err := s.catalog.Find(ctx, id)
	if err != nil || !ok {
		return ""
	}
	return coin.Name
}
