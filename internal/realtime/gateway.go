package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hearthside/estate/internal/models"
)

// Socket event names.
const (
	EventNewInquiry      = "new_inquiry"
	EventInquiryResponse = "inquiry_response"
)

// Broadcast group names.
const (
	groupAdmin = "admin"
	groupUser  = "user"
)

// ErrGatewayClosed is returned when a notify call is made on a gateway that
// has not been started or has already been shut down. Callers must start the
// gateway before emitting events.
var ErrGatewayClosed = errors.New("realtime gateway is not running")

// Frame is the JSON wire format for socket events in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// InquiryEvent is the payload carried by inquiry-related events.
type InquiryEvent struct {
	InquiryID  string `json:"inquiryId,omitempty"`
	PropertyID string `json:"propertyId"`
	UserID     string `json:"userId"`
	Message    string `json:"message"`
}

// IdentityVerifier resolves a handshake token into the referenced user and
// the effective admin flag. Group membership is derived from this verified
// identity, never from a client-supplied flag.
type IdentityVerifier func(ctx context.Context, token string) (*models.User, bool, error)

// InquirySink receives inquiries submitted by clients over the socket.
// Implementations are expected to persist the inquiry and fan out
// notifications; the gateway itself only relays.
type InquirySink interface {
	CreateFromClient(ctx context.Context, userID, propertyID primitive.ObjectID, message string) error
}

type gatewayState int

const (
	stateNew gatewayState = iota
	stateRunning
	stateClosed
)

// outbound is a hub-internal broadcast instruction.
type outbound struct {
	group   string
	userID  string // When set, restrict delivery to this user's connections.
	payload []byte
}

// Gateway is the process-wide realtime connection manager. It keeps two
// disjoint broadcast groups (admin and user) and relays inquiry events
// between them. Group mutations are serialized through the hub loop.
type Gateway struct {
	verify IdentityVerifier
	sink   InquirySink

	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan outbound

	mu      sync.Mutex
	state   gatewayState
	done    chan struct{}
	stopped chan struct{}

	admins map[*client]struct{}
	users  map[*client]struct{}
}

// NewGateway creates a gateway. It must be started with Run before any
// notify call; callers must treat it as explicit process-wide state with an
// init/shutdown lifecycle.
func NewGateway(verify IdentityVerifier) *Gateway {
	return &Gateway{
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser origin is not a trust boundary here; auth is the
			// verified token presented at handshake.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, 32),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		admins:     make(map[*client]struct{}),
		users:      make(map[*client]struct{}),
	}
}

// SetInquirySink wires the persistence path for client-originated inquiry
// events. Set after construction to break the service/gateway cycle.
func (g *Gateway) SetInquirySink(sink InquirySink) {
	g.sink = sink
}

// Run starts the hub loop. It returns an error if the gateway was already
// started or shut down.
func (g *Gateway) Run() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateNew {
		return fmt.Errorf("gateway already started or closed")
	}
	g.state = stateRunning
	go g.loop()
	return nil
}

// Shutdown stops the hub loop and closes every connection. It waits for the
// loop to drain or the context to expire.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	if g.state != stateRunning {
		g.mu.Unlock()
		return nil
	}
	g.state = stateClosed
	close(g.done)
	g.mu.Unlock()

	select {
	case <-g.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateRunning
}

func (g *Gateway) loop() {
	defer close(g.stopped)
	for {
		select {
		case cl := <-g.register:
			if cl.admin {
				g.admins[cl] = struct{}{}
			} else {
				g.users[cl] = struct{}{}
			}
			log.Printf("Realtime: %s connection registered (user %s). admins=%d users=%d",
				cl.group(), cl.userID, len(g.admins), len(g.users))

		case cl := <-g.unregister:
			g.drop(cl)

		case msg := <-g.broadcast:
			targets := g.users
			if msg.group == groupAdmin {
				targets = g.admins
			}
			for cl := range targets {
				if msg.userID != "" && cl.userID != msg.userID {
					continue
				}
				select {
				case cl.send <- msg.payload:
				default:
					// Slow consumer: delivery is best-effort, at-most-once.
					// Drop the connection; the client catches up via the
					// notifications endpoint.
					log.Printf("Realtime: dropping slow %s connection (user %s)", cl.group(), cl.userID)
					g.drop(cl)
				}
			}

		case <-g.done:
			for cl := range g.admins {
				g.drop(cl)
			}
			for cl := range g.users {
				g.drop(cl)
			}
			return
		}
	}
}

// drop removes a client from its group and closes its send channel. Must be
// called from the hub loop only.
func (g *Gateway) drop(cl *client) {
	if cl.admin {
		if _, ok := g.admins[cl]; !ok {
			return
		}
		delete(g.admins, cl)
	} else {
		if _, ok := g.users[cl]; !ok {
			return
		}
		delete(g.users, cl)
	}
	close(cl.send)
}

// NotifyAdmins emits a new_inquiry event to every member of the admin group.
// No user-group member receives it. Delivery is best-effort: a disconnected
// admin misses the event and catches up through the notifications endpoint.
func (g *Gateway) NotifyAdmins(ctx context.Context, ev InquiryEvent) error {
	return g.emit(ctx, groupAdmin, "", EventNewInquiry, ev)
}

// NotifyUser emits an inquiry_response event to the given user's connections
// in the user group.
func (g *Gateway) NotifyUser(ctx context.Context, userID string, ev InquiryEvent) error {
	return g.emit(ctx, groupUser, userID, EventInquiryResponse, ev)
}

func (g *Gateway) emit(ctx context.Context, group, userID, event string, ev InquiryEvent) error {
	if !g.running() {
		return ErrGatewayClosed
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}

	select {
	case g.broadcast <- outbound{group: group, userID: userID, payload: payload}:
		return nil
	case <-g.done:
		return ErrGatewayClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleConnection upgrades an authenticated HTTP request to a websocket and
// joins the connection to exactly one broadcast group. The group is derived
// from the verified token identity: effective admins join the admin group,
// everyone else joins the user group.
func (g *Gateway) HandleConnection(c *gin.Context) {
	if !g.running() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"status": "error", "message": "Realtime gateway is not available",
		})
		return
	}

	// Browser websocket clients cannot set an Authorization header, so the
	// token travels as a query parameter.
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status": "error", "message": "Missing token",
		})
		return
	}

	user, isAdmin, err := g.verify(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status": "error", "message": "Invalid or expired token",
		})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Printf("Realtime: websocket upgrade failed for user %s: %v", user.ID.Hex(), err)
		return
	}

	cl := newClient(g, conn, user.ID.Hex(), isAdmin)
	select {
	case g.register <- cl:
	case <-g.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}
