package ws

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tab-live/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	closeGracePeriod = time.Second
)

// Conn wraps one gorilla socket behind a single-writer pump: every data
// frame goes through the send channel, so frames to the same client are
// never interleaved or reordered. Ping and close use WriteControl, which
// gorilla allows concurrently with the pump.
type Conn struct {
	id     uuid.UUID
	userID uuid.UUID
	log    *slog.Logger
	sock   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(log *slog.Logger, sock *websocket.Conn, userID uuid.UUID, sendBuffer int) *Conn {
	return &Conn{
		id:     uuid.New(),
		userID: userID,
		log:    log,
		sock:   sock,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() uuid.UUID     { return c.id }
func (c *Conn) UserID() uuid.UUID { return c.userID }

// Send queues one frame for delivery. A full buffer means the client is
// not draining; the frame is refused instead of blocking a broadcast.
func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
		return errors.ErrSendBufferFull
	}
}

func (c *Conn) Ping() error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	return c.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close sends a close frame with the given status code, then tears the
// socket down. Safe to call from any close path, any number of times.
func (c *Conn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		message := websocket.FormatCloseMessage(code, reason)
		if writeErr := c.sock.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait)); writeErr != nil {
			c.log.Debug(fmt.Sprintf("Could not write close frame to connection %s", c.id), "error", writeErr)
		}
		// Give the peer a moment to read the close frame before the
		// socket disappears under it.
		time.AfterFunc(closeGracePeriod, func() {
			_ = c.sock.Close()
		})
		err = nil
	})
	return err
}

// writePump drains the send channel onto the socket. It is the only
// writer of data frames; it exits when the connection is closed or a
// write fails.
func (c *Conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Debug("Failed to set write deadline", "connection_id", c.id, "error", err)
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("Write failed, closing connection",
					"connection_id", c.id,
					"user_id", c.userID,
					"error", err)
				_ = c.Close(websocket.CloseInternalServerErr, "Transport error")
				return
			}
		}
	}
}
