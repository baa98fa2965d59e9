package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// client is a single websocket connection belonging to one broadcast group.
type client struct {
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	admin   bool
}

func newClient(g *Gateway, conn *websocket.Conn, userID string, admin bool) *client {
	return &client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, 16),
		userID:  userID,
		admin:   admin,
	}
}

func (c *client) group() string {
	if c.admin {
		return groupAdmin
	}
	return groupUser
}

// readPump reads frames from the connection until it closes. Client-submitted
// new_inquiry events are persisted through the gateway's inquiry sink; the
// sink is responsible for the admin-group broadcast, so socket-submitted and
// REST-submitted inquiries behave identically.
func (c *client) readPump() {
	defer func() {
		select {
		case c.gateway.unregister <- c:
		case <-c.gateway.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Realtime: unexpected close from user %s: %v", c.userID, err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("Realtime: malformed frame from user %s: %v", c.userID, err)
			continue
		}

		switch frame.Event {
		case EventNewInquiry:
			c.handleNewInquiry(frame.Data)
		default:
			log.Printf("Realtime: ignoring unknown event %q from user %s", frame.Event, c.userID)
		}
	}
}

func (c *client) handleNewInquiry(data json.RawMessage) {
	if c.gateway.sink == nil {
		log.Printf("Realtime: no inquiry sink wired, dropping new_inquiry from user %s", c.userID)
		return
	}

	var ev InquiryEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("Realtime: malformed new_inquiry payload from user %s: %v", c.userID, err)
		return
	}

	propertyID, err := primitive.ObjectIDFromHex(ev.PropertyID)
	if err != nil {
		log.Printf("Realtime: invalid propertyId %q from user %s", ev.PropertyID, c.userID)
		return
	}

	// The userId field of the payload is ignored: the inquiry is attributed
	// to the authenticated connection identity.
	userID, err := primitive.ObjectIDFromHex(c.userID)
	if err != nil {
		log.Printf("Realtime: connection has invalid user id %q", c.userID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.gateway.sink.CreateFromClient(ctx, userID, propertyID, ev.Message); err != nil {
		log.Printf("Realtime: failed to persist inquiry from user %s: %v", c.userID, err)
	}
}

// writePump writes queued payloads and keepalive pings to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub dropped us.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
