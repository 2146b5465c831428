package http

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/metrics"
)

// wsSender wraps a websocket connection so that every outbound write is
// counted identically, no matter which handler produced it. Handlers
// never touch the counter themselves.
type wsSender struct {
	conn     *websocket.Conn
	counters *metrics.Counters

	mu sync.Mutex
}

func newWSSender(conn *websocket.Conn, counters *metrics.Counters) *wsSender {
	return &wsSender{conn: conn, counters: counters}
}

// Send marshals the payload and writes it as one text frame. Handlers
// run on their own goroutines, so writes are serialized here.
func (s *wsSender) Send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Response()
	return s.conn.Write(ctx, websocket.MessageText, data)
}
