// Package advisor turns a coin's market metrics into a Buy / Do Not Buy
// recommendation using a chat-completion model.
package advisor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cryptoboard/internal/market"

	"go.uber.org/zap"
)

type Verdict string

const (
	Buy      Verdict = "Buy"
	DoNotBuy Verdict = "Do Not Buy"
)

const (
	failedRationale  = "Error generating recommendation. Please try again."
	defaultRationale = "Unable to generate recommendation due to a data error. Please try again later."
)

// MetricsSource supplies the market figures a prompt is built from.
type MetricsSource interface {
	Metrics(ctx context.Context, id string) (market.Metrics, error)
}

// Completer sends a system and user message and returns the model's JSON reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Recommendation struct {
	CurrencyID   string  `json:"currencyId"`
	CurrencyName string  `json:"currencyName"`
	Verdict      Verdict `json:"recommendation"`
	Rationale    string  `json:"rationale"`
	Failed       bool    `json:"hasError"`
}

// Target names a coin to recommend on.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Advisor struct {
	metrics   MetricsSource
	completer Completer
	pause     time.Duration
	logger    *zap.Logger
}

// New builds an Advisor. pause is the wait between consecutive requests in
// RecommendAll.
func New(metrics MetricsSource, completer Completer, pause time.Duration, logger *zap.Logger) *Advisor {
	return &Advisor{
		metrics:   metrics,
		completer: completer,
		pause:     pause,
		logger:    logger,
	}
}

// Recommend never fails: errors are logged and folded into a default
// recommendation. Failed is set only when the market data could not be read.
func (a *Advisor) Recommend(ctx context.Context, id, name string) Recommendation {
	rec := Recommendation{CurrencyID: id, CurrencyName: name}

	m, err := a.metrics.Metrics(ctx, id)
	if err != nil {
		a.logger.Warn("failed to load metrics", zap.String("id", id), zap.Error(err))
		rec.Verdict = DoNotBuy
		rec.Rationale = failedRationale
		rec.Failed = true
		return rec
	}
	if rec.CurrencyName == "" {
		rec.CurrencyName = m.Name
	}

	reply, err := a.completer.Complete(ctx, systemPrompt, userPrompt(m))
	if err != nil {
		a.logger.Warn("completion failed", zap.String("id", id), zap.Error(err))
		rec.Verdict, rec.Rationale = DoNotBuy, defaultRationale
		return rec
	}

	verdict, rationale, ok := parseReply(reply)
	if !ok {
		a.logger.Warn("unusable completion", zap.String("id", id), zap.String("reply", reply))
		rec.Verdict, rec.Rationale = DoNotBuy, defaultRationale
		return rec
	}

	rec.Verdict, rec.Rationale = verdict, rationale
	a.logger.Info("recommendation ready", zap.String("id", id), zap.String("verdict", string(verdict)))
	return rec
}

// RecommendAll asks for each target in order, pausing between requests.
// It returns early with the recommendations made so far if ctx is cancelled.
func (a *Advisor) RecommendAll(ctx context.Context, targets []Target) []Recommendation {
	out := make([]Recommendation, 0, len(targets))
	for i, t := range targets {
		if i > 0 && a.pause > 0 {
			timer := time.NewTimer(a.pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return out
		}
		out = append(out, a.Recommend(ctx, t.ID, t.Name))
	}
	return out
}

type reply struct {
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
}

func parseReply(raw string) (Verdict, string, bool) {
	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return "", "", false
	}

	var v Verdict
	switch strings.ToLower(strings.TrimSpace(r.Recommendation)) {
	case "buy":
		v = Buy
	case "do not buy":
		v = DoNotBuy
	default:
		return "", "", false
	}

	rationale := strings.TrimSpace(r.Rationale)
	if rationale == "" {
		return "", "", false
	}
	return v, rationale, true
}
