package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	defaultReadLimit    = 64 << 10
	defaultWriteTimeout = 10 * time.Second
)

// Handler processes one command and returns the value to send back.
type Handler func(ctx context.Context, msg InboundMessage) (any, error)

// WebSocketChannel serves page commands over a websocket connection.
type WebSocketChannel struct {
	originPatterns []string
	readLimit      int64
	writeTimeout   time.Duration
}

// NewWebSocketChannel creates a channel. originPatterns lists extra hosts
// allowed to connect besides the serving host.
func NewWebSocketChannel(originPatterns ...string) *WebSocketChannel {
	return &WebSocketChannel{
		originPatterns: originPatterns,
		readLimit:      defaultReadLimit,
		writeTimeout:   defaultWriteTimeout,
	}
}

// Serve upgrades the request and handles commands until the client goes away.
// Commands on one connection are handled strictly in order.
func (ch *WebSocketChannel) Serve(w http.ResponseWriter, r *http.Request, handler Handler) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: ch.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(ch.readLimit)

	ctx := r.Context()
	slog.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg InboundMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Debug("websocket closed", "remote", r.RemoteAddr)
				return
			}
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("websocket read failed", "error", err)
			return
		}

		out := OutboundMessage{Type: "view"}
		if err := msg.Validate(); err != nil {
			out = OutboundMessage{Type: "error", Error: err.Error()}
		} else if view, err := handler(ctx, msg); err != nil {
			out = OutboundMessage{Type: "error", Error: err.Error()}
		} else {
			out.View = view
		}

		if err := ch.write(ctx, conn, out); err != nil {
			slog.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (ch *WebSocketChannel) write(ctx context.Context, conn *websocket.Conn, out OutboundMessage) error {
	ctx, cancel := context.WithTimeout(ctx, ch.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, out)
}
