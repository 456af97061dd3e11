package websocket

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/services"
)

const writeTimeout = 10 * time.Second

type tokenParser interface {
	ParseToken(tokenStr string) (middleware.Identity, error)
}

// quizMonitoring is the part of the quiz service the hub needs to attach
// integrity monitors to a session.
type quizMonitoring interface {
	CanMonitor(ctx context.Context, userID, sessionID uuid.UUID) error
	RecordIntegrityFlag(ctx context.Context, userID, sessionID uuid.UUID) (int, error)
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	cancelFuncs map[uuid.UUID]context.CancelFunc
	redisClient *redis.Client
	auth        tokenParser
	quizzes     quizMonitoring
	upgrader    websocket.Upgrader
	log         *logger.Logger
}

// NewHub creates the hub. redisClient may be nil, in which case pub/sub
// updates are not forwarded.
func NewHub(redisClient *redis.Client, auth tokenParser, quizzes quizMonitoring, allowedOrigin string, log *logger.Logger) *Hub {
	allowedOrigin = strings.TrimRight(allowedOrigin, "/")
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		redisClient: redisClient,
		auth:        auth,
		quizzes:     quizzes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		log: log.With("component", "ws_hub"),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the upgrade request, so the token comes
	// in the query string.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	identity, err := h.auth.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := newClient(ctx, identity.UserID, conn, h.quizzes, h.log)
	h.registerConnection(c)

	go func() {
		defer func() {
			cancel()
			h.unregisterConnection(c)
		}()
		c.readLoop()
	}()
}

func (h *Hub) registerConnection(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[c.userID] = append(h.connections[c.userID], c)

	// One pub/sub subscription per user, shared by all of their connections.
	if len(h.connections[c.userID]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[c.userID] = cancel
		go h.subscribeToPubSub(ctx, c.userID)
	}

	h.log.Info("websocket connected", "user_id", c.userID, "connections", len(h.connections[c.userID]))
}

func (h *Hub) unregisterConnection(c *client) {
	c.stopAllMonitors()

	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[c.userID]
	for i, existing := range conns {
		if existing == c {
			h.connections[c.userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[c.userID]) == 0 {
		delete(h.connections, c.userID)
		if cancel, ok := h.cancelFuncs[c.userID]; ok {
			cancel()
			delete(h.cancelFuncs, c.userID)
		}
	}

	h.log.Info("websocket disconnected", "user_id", c.userID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.UserChannel(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) clients(userID uuid.UUID) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*client(nil), h.connections[userID]...)
}

func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	for _, c := range h.clients(userID) {
		if err := c.write(data); err != nil {
			h.log.Debug("websocket write failed", "user_id", userID, "error", err)
		}
	}
}

// StopSession ends integrity monitoring for a quiz session on all of the
// user's connections.
func (h *Hub) StopSession(userID, sessionID uuid.UUID) {
	for _, c := range h.clients(userID) {
		c.stopMonitor(sessionID)
	}
}
