package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tab-live/contract"
	"tab-live/observability"
	"tab-live/runtime"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests into live sessions. The handshake
// validates the bearer credential, resolves the user's topology and
// admits the connection; any failure closes the socket with a
// server-error status before a single frame is exchanged.
type Handler struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	validator  contract.TokenValidator
	admitter   *runtime.Admitter
	registry   *runtime.Registry
	dispatcher *Dispatcher
	monitor    *observability.Monitor
	sendBuffer int
}

func NewHandler(log *slog.Logger, validator contract.TokenValidator, admitter *runtime.Admitter,
	registry *runtime.Registry, dispatcher *Dispatcher, monitor *observability.Monitor, sendBuffer int) *Handler {
	return &Handler{
		log:        log,
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		validator:  validator,
		admitter:   admitter,
		registry:   registry,
		dispatcher: dispatcher,
		monitor:    monitor,
		sendBuffer: sendBuffer,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	userID, err := h.validator.Validate(authHeader)
	if err != nil {
		h.log.Warn("Connection refused: bad credential", "remote", r.RemoteAddr, "error", err)
		h.refuse(sock, "Authentication failed")
		return
	}

	conn := newConn(h.log, sock, userID, h.sendBuffer)
	if err := h.admitter.Admit(r.Context(), conn.ID(), userID, conn); err != nil {
		h.log.Error("Connection refused: topology resolution failed",
			"user_id", userID,
			"error", err)
		h.refuse(sock, "Handshake failed")
		return
	}
	h.monitor.ConnectionAdmitted()
	h.log.Info(fmt.Sprintf("WebSocket connection established for user %s with connection %s", userID, conn.ID()))

	go conn.writePump()
	h.readLoop(r.Context(), conn)
}

// readLoop owns the socket's read side for the connection's lifetime.
// Registry removal happens here, in the connection's own close path,
// never in the liveness scan.
func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	defer func() {
		h.registry.Remove(conn.ID())
		h.monitor.ConnectionClosed()
		_ = conn.Close(websocket.CloseInternalServerErr, "Transport error")
		h.log.Info(fmt.Sprintf("WebSocket connection closed for user %s with connection %s", conn.UserID(), conn.ID()))
	}()

	conn.sock.SetPongHandler(func(string) error {
		h.registry.TouchPong(conn.ID())
		h.log.Debug("Received pong", "connection_id", conn.ID())
		return nil
	})

	for {
		messageType, raw, err := conn.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Transport error on connection",
					"connection_id", conn.ID(),
					"error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.dispatcher.Dispatch(ctx, conn, conn.UserID(), raw)
	}
}

// refuse closes a socket that never made it into the registry.
func (h *Handler) refuse(sock *websocket.Conn, reason string) {
	message := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, reason)
	if err := sock.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait)); err != nil {
		h.log.Debug("Could not write refusal close frame", "error", err)
	}
	_ = sock.Close()
}
