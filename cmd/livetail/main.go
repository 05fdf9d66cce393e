// Command livetail follows a running dashboard's live feed and logs every
// polling cycle.
package main

import (
	"context"
	"os/signal"
	"sort"
	"syscall"

	"cryptoboard/config"
	"cryptoboard/logger"
	"cryptoboard/pkg/livefeed"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := livefeed.NewWSClient(cfg.Server.LiveURL(), log)
	client.SetMessageHandler(livefeed.MakeMessageHandler(log, func(m livefeed.Message) {
		switch m.Type {
		case "reset":
			log.Info("nothing followed; series cleared", zap.String("cycle", m.CycleID))
		case "error":
			log.Warn("cycle failed", zap.String("cycle", m.CycleID), zap.String("error", m.Error))
		default:
			log.Info("cycle", zap.String("cycle", m.CycleID), zap.Time("at", m.At), zap.Strings("prices", formatPrices(m.Prices)))
		}
	}))

	if err := client.Connect(ctx); err != nil {
		log.Fatal("failed to connect to live feed", zap.Error(err))
	}
	client.Listen(ctx)
}

func formatPrices(prices map[string]*float64) []string {
	out := make([]string, 0, len(prices))
	for id, p := range prices {
		if p == nil {
			out = append(out, id+"=n/a")
			continue
		}
		out = append(out, id+"=$"+humanize.CommafWithDigits(*p, 2))
	}
	sort.Strings(out)
	return out
}
