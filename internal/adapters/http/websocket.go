package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/questgeo/internal/adapters/nats"
	"github.com/samirrijal/questgeo/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsMessage is sent from client to narrow or widen its verdict feed.
type wsMessage struct {
	Action   string `json:"action"`    // "subscribe" | "unsubscribe"
	TargetID string `json:"target_id"` // quest target filter; "" = every verdict
}

// verdictFilter decides which verdicts a connection receives. It starts
// out open; following specific targets narrows it.
type verdictFilter struct {
	mu      sync.Mutex
	all     bool
	targets map[string]bool
}

func newVerdictFilter() *verdictFilter {
	return &verdictFilter{all: true, targets: make(map[string]bool)}
}

// apply updates the filter and returns the acknowledgement for the client.
func (f *verdictFilter) apply(m wsMessage) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	scope := m.TargetID
	if scope == "" {
		scope = "*"
	}

	switch m.Action {
	case "subscribe":
		if m.TargetID == "" {
			f.all = true
		} else {
			f.targets[m.TargetID] = true
			f.all = false
		}
		return map[string]string{"status": "subscribed", "target_id": scope}

	case "unsubscribe":
		if m.TargetID == "" {
			f.all = false
		} else if f.targets[m.TargetID] {
			delete(f.targets, m.TargetID)
		} else {
			return map[string]string{"error": "not subscribed to " + m.TargetID}
		}
		return map[string]string{"status": "unsubscribed", "target_id": scope}
	}
	return map[string]string{"error": "unknown action: " + m.Action}
}

func (f *verdictFilter) wants(targetID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all || f.targets[targetID]
}

// WebSocketHandler returns a handler that upgrades to WebSocket
// and relays verification verdicts from NATS to connected clients.
// Clients send JSON: {"action":"subscribe","target_id":"<id>"}
// New connections receive every verdict until they follow specific targets.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.With("remote_addr", c.RemoteAddr().String())
		logger.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		if nc == nil {
			_ = c.WriteJSON(map[string]string{"error": "verdict feed unavailable"})
			return
		}

		var writeMu sync.Mutex
		write := func(messageType int, data []byte) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return c.WriteMessage(messageType, data)
		}
		writeJSON := func(v any) {
			if data, err := json.Marshal(v); err == nil {
				_ = write(websocket.TextMessage, data)
			}
		}

		filter := newVerdictFilter()
		sub, err := nc.Subscribe(natsadapter.VerificationSubjectPrefix+">", func(msg *nats.Msg) {
			if filter.wants(natsadapter.TargetFromSubject(msg.Subject)) {
				_ = write(websocket.TextMessage, msg.Data)
			}
		})
		if err != nil {
			logger.Error("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			writeJSON(filter.apply(m))
		}
		logger.Info("ws client disconnected")
	}
}
