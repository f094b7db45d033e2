package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/ptt-signaling/internal/codec"
	"github.com/mossy-p/ptt-signaling/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	ID    string
	conn  *websocket.Conn
	send  chan []byte
	codec codec.Codec

	// closed is guarded by Hub.mu.
	closed bool
}

func newClient(id string, conn *websocket.Conn, frameCodec codec.Codec, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:    id,
		conn:  conn,
		send:  make(chan []byte, buffer),
		codec: frameCodec,
	}
}

// HandleSignaling upgrades the request and runs the connection until the
// peer goes away. The ?codec= query parameter selects the encoding of frames
// sent to this connection.
func (r *Relay) HandleSignaling(c *gin.Context) {
	outbound, err := codec.ByName(c.Query("codec"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !r.reservePumps() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay is shutting down"})
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade connection", "error", err)
		r.wg.Add(-2)
		return
	}

	client := newClient(uuid.New().String(), conn, outbound, r.sendBuffer)
	r.hub.Attach(client)
	slog.Info("peer connected", "peer", client.ID, "remote", conn.RemoteAddr().String(), "codec", outbound.Name())

	r.hub.SendTo(client.ID, models.EventConnected, models.ConnectedEvent{ID: client.ID})

	go func() {
		defer r.wg.Done()
		client.writePump()
	}()
	go func() {
		defer r.wg.Done()
		r.readPump(client)
	}()
}

func (r *Relay) readPump(c *Client) {
	defer func() {
		r.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(r.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Warn("websocket error", "peer", c.ID, "error", err)
			}
			break
		}
		// Any frame proves the peer is alive.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		inbound, err := codec.ForFrameType(messageType)
		if err != nil {
			slog.Warn("dropping frame", "peer", c.ID, "error", err)
			continue
		}
		frame, err := inbound.Decode(message)
		if err != nil {
			slog.Warn("failed to parse message", "peer", c.ID, "codec", inbound.Name(), "error", err)
			continue
		}
		r.dispatch(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(c.codec.FrameType(), message); err != nil {
				slog.Debug("failed to write message", "peer", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
