package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/core"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/metrics"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges inbound envelopes to
// the action router. Connections are persistent and duplex; each
// inbound frame is one envelope.
type WSHandler struct {
	router   core.Router
	counters *metrics.Counters
	log      *zerolog.Logger
}

// NewWSHandler builds the gateway's WebSocket handler.
func NewWSHandler(router core.Router, counters *metrics.Counters, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{router: router, counters: counters, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	connID := uuid.NewString()
	h.log.Debug().Str("conn_id", connID).Msg("connection accepted")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err = h.readLoop(ctx, conn, connID)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			status = websocket.StatusInternalError
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", connID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
	h.log.Debug().Str("conn_id", connID).Msg("connection closed")
}

// readLoop parses each inbound frame as one envelope and dispatches it
// on its own goroutine, so a slow store call never blocks the loop.
// Responses may therefore complete out of order; callers correlate by
// header, never by arrival order.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, connID string) error {
	sender := newWSSender(conn, h.counters)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		env, err := proto.Parse(data)
		if err != nil {
			// No reliable header to correlate a reply: drop silently.
			h.log.Debug().Err(err).Str("conn_id", connID).Msg("dropping malformed envelope")
			continue
		}
		h.counters.Request()

		go h.router.Dispatch(ctx, sender, env)
	}
}
