// Package wire upgrades incoming HTTP requests to WebSocket connections,
// runs the join handshake, and dispatches each connection's envelope
// stream into the matching Room. It is the only package that imports
// gorilla/websocket directly, mirroring the teacher's split between its
// HTTP wiring and its per-connection read/write pumps.
package wire

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cubesnake.io/internal/protocol"
	"cubesnake.io/internal/room"
)

const (
	joinTimeout    = 10 * time.Second
	readDeadline   = 60 * time.Second
	writeDeadline  = 5 * time.Second
	pingInterval   = 25 * time.Second
	sendBufferSize = 16
	maxFrameBytes  = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// conn adapts a *websocket.Conn to room.Sender via a buffered send
// channel and a single writer goroutine, so Room.Broadcast never blocks
// on a slow or wedged client and never has two goroutines writing to the
// same socket concurrently.
type conn struct {
	ws     *websocket.Conn
	sendCh chan protocol.Envelope
	done   chan struct{}
	log    *logrus.Entry
}

func newConn(ws *websocket.Conn, log *logrus.Entry) *conn {
	return &conn{
		ws:     ws,
		sendCh: make(chan protocol.Envelope, sendBufferSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Send implements room.Sender. It never blocks: a full buffer returns an
// error (on which Room.Broadcast evicts the player) rather than stall
// the broadcasting goroutine.
func (c *conn) Send(env protocol.Envelope) error {
	select {
	case c.sendCh <- env:
		return nil
	case <-c.done:
		return errClosed
	default:
		return errBackpressure
	}
}

func (c *conn) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.ws.Close()
}

// writePump owns every write to ws: queued envelopes and periodic pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteJSON(env); err != nil {
				c.log.WithError(err).Debug("write failed, closing connection")
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readEnvelope reads and decodes exactly one client envelope, applying
// the read deadline and size limit.
func (c *conn) readEnvelope() (protocol.Envelope, error) {
	c.ws.SetReadLimit(maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(readDeadline))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return protocol.Envelope{}, err
	}
	return env, nil
}

var (
	errClosed       = websocket.ErrCloseSent
	errBackpressure = &backpressureError{}
)

type backpressureError struct{}

func (*backpressureError) Error() string { return "send buffer full" }

// ServeWS upgrades r into a WebSocket connection, runs the join
// handshake, and — once joined — hands the connection's full message
// loop off to dispatch. It returns once the connection is fully closed.
func ServeWS(manager *room.RoomManager, log *logrus.Entry, w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := newConn(ws, log)
	go c.writePump()
	defer c.close()

	rm, p, err := handshake(manager, c)
	if err != nil {
		return
	}

	connLog := log.WithField("room_id", rm.ID).WithField("player_id", p.PlayerID)
	c.log = connLog
	dispatch(rm, p, c, connLog)
}
