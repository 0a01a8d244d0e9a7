package transport

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"logur.dev/logur"

	"gitlab.com/silenteer-oss/wampc/codec"
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the router.
	maxMessageSize = 5000 * 1024
)

// WebSocketOption customizes a WebSocket transport before it dials.
type WebSocketOption func(*WebSocket)

func WithLogger(logger logur.Logger) WebSocketOption {
	return func(w *WebSocket) { w.logger = logger }
}

func WithHeader(h http.Header) WebSocketOption {
	return func(w *WebSocket) { w.header = h }
}

func WithSerializer(s codec.Serializer, subprotocol string) WebSocketOption {
	return func(w *WebSocket) {
		w.serializer = s
		w.subprotocol = subprotocol
	}
}

// WebSocket is the default Transport implementation for WAMP: the
// basic profile runs over a WebSocket with a negotiated subprotocol
// identifying the serializer. Grounded on the teacher's
// socket/base.go reader/writer pump pair.
type WebSocket struct {
	url         string
	conn        *websocket.Conn
	send        chan []byte
	logger      logur.Logger
	header      http.Header
	serializer  codec.Serializer
	subprotocol string
	closed      bool
	closeReason string
}

func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		url:         url,
		send:        make(chan []byte, 256),
		subprotocol: "wamp.2.json",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.serializer == nil {
		w.serializer = codec.NewJSONSerializer()
	}
	return w
}

func (w *WebSocket) Connect(events Events) error {
	dialer := websocket.Dialer{Subprotocols: []string{w.subprotocol}}
	conn, _, err := dialer.Dial(w.url, w.header)
	if err != nil {
		return errors.WithMessage(err, "transport: websocket dial error")
	}
	w.conn = conn

	if events.Connected != nil {
		events.Connected(w.serializer)
	}

	go w.writePump(events)
	go w.readPump(events)
	return nil
}

func (w *WebSocket) Send(data []byte) error {
	if w.closed {
		return errors.New("transport: send on closed websocket")
	}
	select {
	case w.send <- data:
		return nil
	default:
		return errors.New("transport: send buffer full")
	}
}

func (w *WebSocket) Disconnect(reason string) {
	if w.closed {
		return
	}
	w.closed = true
	w.closeReason = reason
	close(w.send)
}

func (w *WebSocket) readPump(events Events) {
	defer func() {
		if r := recover(); r != nil && w.logger != nil {
			w.logger.Debug("panic recovered in websocket reader")
		}
		w.conn.Close()
	}()

	w.conn.SetReadLimit(maxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			reason := w.closeReason
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if w.logger != nil {
					w.logger.Error(fmt.Sprintf("websocket unexpected close error: %+v", err))
				}
			}
			if events.Disconnected != nil {
				events.Disconnected(err, reason)
			}
			return
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		if events.Received != nil {
			events.Received(message)
		}
	}
}

func (w *WebSocket) writePump(events Events) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil && w.logger != nil {
			w.logger.Debug("panic recovered in websocket writer")
		}
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case message, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				if w.logger != nil {
					w.logger.Debug("can't ping router", map[string]interface{}{"err": err})
				}
				return
			}
		}
	}
}
