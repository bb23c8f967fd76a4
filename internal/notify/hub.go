package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// AlertMessage is the frame pushed to connected dashboards.
type AlertMessage struct {
	Type  string                `json:"type"`
	Event *models.SecurityEvent `json:"event,omitempty"`
	Text  string                `json:"text,omitempty"`
}

// client wraps a socket with its write lock. WriteJSON is not safe for
// concurrent use, so every write goes through the per-client mutex.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(message AlertMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(message)
}

// Hub fans security events out to the dashboards that own them. A user
// may hold several connections at once (multiple tabs); events without
// a user are broadcast to everyone.
type Hub struct {
	tm       *auth.TokenManager
	sessions auth.SessionChecker
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub creates a Hub that authenticates connections with tm and
// rejects tokens whose session is no longer live. Origins not in
// allowedOrigins are refused during the upgrade handshake.
func NewHub(tm *auth.TokenManager, sessions auth.SessionChecker, allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		tm:       tm,
		sessions: sessions,
		logger:   logger,
		clients:  make(map[string]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// HandleWS upgrades the request to a websocket after validating the
// access token. The token arrives as a query parameter because browser
// websocket clients cannot set an Authorization header.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.tm.ValidateToken(token)
	if err != nil || claims.Type != "access" {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if h.sessions != nil && claims.SessionID != "" {
		if !h.sessions.ValidateSession(claims.SessionID, claims.Fingerprint) {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn}
	h.register(claims.UserID, c)
	h.logger.Info("alert stream connected", slog.String("user_id", claims.UserID))

	go h.pingLoop(c)
	go h.readLoop(claims.UserID, c)
}

// Publish pushes a security event to its user's connections, or to all
// connections when the event carries no user. Satisfies the services
// layer's AlertPublisher.
func (h *Hub) Publish(event *models.SecurityEvent) {
	message := AlertMessage{Type: "security_event", Event: event}

	h.mu.RLock()
	var targets []*client
	if event.UserID != nil {
		for c := range h.clients[*event.UserID] {
			targets = append(targets, c)
		}
	} else {
		for _, conns := range h.clients {
			for c := range conns {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		// One slow consumer must not hold up the rest
		go func(c *client) {
			if err := c.send(message); err != nil {
				h.logger.Info("alert delivery failed", slog.Any("error", err))
			}
		}(c)
	}
}

// CloseUser sends a final notice to every connection the user holds and
// closes them. Called when the user's sessions are forcibly ended.
func (h *Hub) CloseUser(userID, reason string) {
	h.mu.Lock()
	conns := h.clients[userID]
	delete(h.clients, userID)
	h.mu.Unlock()

	for c := range conns {
		c.send(AlertMessage{Type: "disconnect", Text: reason})
		c.conn.Close()
	}
}

// ConnectionCount reports the number of open connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

// readLoop drains inbound frames so pings and close frames are
// processed. The dashboard never sends application messages.
func (h *Hub) readLoop(userID string, c *client) {
	defer func() {
		h.unregister(userID, c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) pingLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := c.conn.WriteMessage(websocket.PingMessage, nil)
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}
