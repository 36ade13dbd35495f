package gatewayhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/n9te9/federation-core/internal/gwlog"
	"go.uber.org/zap"
)

// wsConn serializes writes across the read loop and the keepalive
// goroutine: gorilla/websocket permits only one concurrent writer per
// connection.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

// wsMessage is one graphql-transport-ws protocol frame (connection_init,
// connection_ack, ping, pong, subscribe, next, error, complete).
type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocketConfig configures the graphql-transport-ws upgrader,
// grounded on volaticloud/internal/graph/websocket.go's
// WebSocketConfig (AllowedOrigins / KeepAlivePingInterval / an
// AuthClient consulted from connection_init), generalized from gqlgen's
// transport.Websocket wrapper to a hand-rolled protocol loop since this
// module assumes no execution engine (spec §6.2's closing note).
type WebSocketConfig struct {
	AllowedOrigins        []string
	KeepAlivePingInterval time.Duration
}

const (
	wsConnectionInit = "connection_init"
	wsConnectionAck  = "connection_ack"
	wsPing           = "ping"
	wsPong           = "pong"
	wsSubscribe      = "subscribe"
	wsNext           = "next"
	wsError          = "error"
	wsComplete       = "complete"
)

// subscriptions tracks the live subscribe messages on one connection so
// a wsComplete from the client can cancel the matching goroutine without
// blocking the read loop on a long-lived stream (spec §4.5).
type subscriptions struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func (s *subscriptions) add(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancels == nil {
		s.cancels = make(map[string]context.CancelFunc)
	}
	s.cancels[id] = cancel
}

func (s *subscriptions) cancel(id string) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *subscriptions) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, id)
}

func (s *subscriptions) cancelAll() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// ServeWebSocket upgrades r to a graphql-transport-ws connection and
// drives the protocol loop: connection_init/ack, then one subscribe per
// subscription message, each running concurrently in its own goroutine
// with a cancelable context so a long-lived stream (spec §4.5) never
// blocks the read loop from handling pings or a client's wsComplete.
func (g *Gateway) ServeWebSocket(cfg WebSocketConfig) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(cfg.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range cfg.AllowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
		Subprotocols: []string{"graphql-transport-ws"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := &wsConn{Conn: raw}
		defer conn.Close()

		log := gwlog.From(r.Context())
		headers := flattenHeaders(r.Header)
		subs := &subscriptions{}
		defer subs.cancelAll()

		if cfg.KeepAlivePingInterval > 0 {
			stop := make(chan struct{})
			defer close(stop)
			go keepAlive(conn, cfg.KeepAlivePingInterval, stop)
		}

		initialized := false
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}

			switch msg.Type {
			case wsConnectionInit:
				if g.authenticator != nil {
					var payload map[string]interface{}
					_ = json.Unmarshal(msg.Payload, &payload)
					if tok, ok := payload["authorization"].(string); ok {
						headers["authorization"] = tok
					}
					if _, err := g.authenticator.Authenticate(r.Context(), headers); err != nil {
						conn.WriteJSON(wsMessage{Type: wsError, Payload: jsonMessage("unauthorized")})
						conn.Close()
						return
					}
				}
				initialized = true
				conn.WriteJSON(wsMessage{Type: wsConnectionAck})

			case wsPing:
				conn.WriteJSON(wsMessage{Type: wsPong})

			case wsSubscribe:
				if !initialized {
					conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsError, Payload: jsonMessage("connection not initialized")})
					continue
				}
				subCtx, cancel := context.WithCancel(r.Context())
				subs.add(msg.ID, cancel)
				go func(msg wsMessage) {
					defer subs.remove(msg.ID)
					defer cancel()
					g.handleSubscribe(subCtx, conn, msg, headers, log)
				}(msg)

			case wsComplete:
				subs.cancel(msg.ID)

			default:
				conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsError, Payload: jsonMessage("unknown message type")})
			}
		}
	}
}

// handleSubscribe runs one subscribe message through the bind/solve/
// execute pipeline and writes one `next` frame per incremental payload
// the scheduler emits (spec §4.5), until the stream completes or subCtx
// is cancelled, then writes `complete`.
func (g *Gateway) handleSubscribe(subCtx context.Context, conn *wsConn, msg wsMessage, headers map[string]string, log *zap.Logger) {
	var req graphQLRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsError, Payload: jsonMessage("malformed subscribe payload")})
		return
	}

	incs, gerr := g.executionIncremental(subCtx, req, headers)
	if gerr != nil {
		conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsError, Payload: jsonMessage(gerr.Message)})
		return
	}

	for env := range incs {
		payload, err := json.Marshal(env)
		if err != nil {
			log.Error("failed to marshal subscription payload", zap.Error(err))
			conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsError, Payload: jsonMessage("internal server error")})
			return
		}
		if err := conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsNext, Payload: payload}); err != nil {
			return
		}
	}
	conn.WriteJSON(wsMessage{ID: msg.ID, Type: wsComplete})
}

func jsonMessage(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// keepAlive writes a server-initiated ping every interval until stop is
// closed, so idle connections on a read-timeout'd load balancer stay up
// (the one concern gorilla's Upgrader itself is silent on).
func keepAlive(conn *wsConn, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(wsMessage{Type: wsPing}); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
