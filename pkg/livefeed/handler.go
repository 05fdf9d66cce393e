package livefeed

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Message is the part of a live update a follower needs. The full series
// payload that the server also sends is ignored.
type Message struct {
	Type    string              `json:"type"` // "snapshot", "cycle", "reset" or "error"
	CycleID string              `json:"cycleId"`
	At      time.Time           `json:"at"`
	Prices  map[string]*float64 `json:"prices"`
	Error   string              `json:"error"`
}

// MakeMessageHandler returns a function that decodes raw feed messages and
// passes cycle, reset and error updates to fn.
func MakeMessageHandler(logger *zap.Logger, fn func(Message)) func(msg []byte) {
	return func(msg []byte) {
		// Step 1: extract the type for early filtering
		var meta struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			logger.Warn("failed to extract message type", zap.Error(err))
			return
		}
		if !isUpdate(meta.Type) {
			return // the initial snapshot and unknown types carry nothing to report
		}

		// Step 2: fully parse the update
		var parsed Message
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("failed to parse live update", zap.Error(err))
			return
		}
		fn(parsed)
	}
}

func isUpdate(t string) bool {
	switch t {
	case "cycle", "reset", "error":
		return true
	}
	return false
}
