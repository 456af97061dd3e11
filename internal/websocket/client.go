package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/services"
)

// Messages the browser sends.
const (
	msgMonitorStart      = "monitor_start"
	msgMonitorStop       = "monitor_stop"
	msgIntegrityEvent    = "integrity_event"
	msgFullscreenRequest = "fullscreen_request"
	msgFullscreenRelease = "fullscreen_release"
)

// Messages the server sends for integrity monitoring.
const (
	msgPlayTone          = "play_tone"
	msgRequestFullscreen = "request_fullscreen"
	msgExitFullscreen    = "exit_fullscreen"
	msgIntegrityWarning  = "integrity_warning"
	msgError             = "error"
)

type clientMessage struct {
	Type    string        `json:"type"`
	Payload clientPayload `json:"payload"`
}

type clientPayload struct {
	SessionID  uuid.UUID `json:"session_id"`
	Event      string    `json:"event,omitempty"`
	Fullscreen *bool     `json:"fullscreen,omitempty"`
}

type monitorError struct {
	SessionID    uuid.UUID `json:"session_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

type sessionMonitor struct {
	monitor  *services.IntegrityMonitor
	platform *wsPlatform
}

// client is one WebSocket connection. Writes are serialized because
// gorilla connections support a single concurrent writer.
type client struct {
	ctx     context.Context
	userID  uuid.UUID
	conn    *websocket.Conn
	quizzes quizMonitoring
	log     *logger.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	monitors map[uuid.UUID]*sessionMonitor
}

func newClient(ctx context.Context, userID uuid.UUID, conn *websocket.Conn, quizzes quizMonitoring, log *logger.Logger) *client {
	return &client{
		ctx:      ctx,
		userID:   userID,
		conn:     conn,
		quizzes:  quizzes,
		log:      log.With("user_id", userID),
		monitors: make(map[uuid.UUID]*sessionMonitor),
	}
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) send(msgType string, payload interface{}) error {
	data, err := json.Marshal(models.WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("ignoring malformed ws message", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *client) dispatch(msg clientMessage) {
	sessionID := msg.Payload.SessionID

	switch msg.Type {
	case msgMonitorStart:
		c.startMonitor(sessionID)
	case msgMonitorStop:
		c.stopMonitor(sessionID)
	case msgIntegrityEvent:
		if sm := c.monitor(sessionID); sm != nil {
			sm.platform.deliver(msg.Payload)
		}
	case msgFullscreenRequest:
		if sm := c.monitor(sessionID); sm != nil {
			if err := sm.monitor.RequestFullscreen(); err != nil {
				c.log.Debug("fullscreen request not delivered", "session_id", sessionID, "error", err)
			}
		}
	case msgFullscreenRelease:
		if sm := c.monitor(sessionID); sm != nil {
			if err := sm.monitor.ReleaseFullscreen(); err != nil {
				c.log.Debug("fullscreen release not delivered", "session_id", sessionID, "error", err)
			}
		}
	default:
		c.log.Debug("ignoring unknown ws message", "type", msg.Type)
	}
}

func (c *client) monitor(sessionID uuid.UUID) *sessionMonitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitors[sessionID]
}

func (c *client) startMonitor(sessionID uuid.UUID) {
	if err := c.quizzes.CanMonitor(c.ctx, c.userID, sessionID); err != nil {
		c.sendMonitorError(sessionID, err)
		return
	}

	c.mu.Lock()
	if _, ok := c.monitors[sessionID]; ok {
		c.mu.Unlock()
		return
	}
	platform := &wsPlatform{client: c, sessionID: sessionID}
	sm := &sessionMonitor{monitor: services.NewIntegrityMonitor(platform), platform: platform}
	c.monitors[sessionID] = sm
	c.mu.Unlock()

	sm.monitor.Start(func() { c.flag(sessionID) })
	c.log.Debug("integrity monitor started", "session_id", sessionID)
}

// flag records a tab switch and warns the browser with the new count.
func (c *client) flag(sessionID uuid.UUID) {
	flags, err := c.quizzes.RecordIntegrityFlag(c.ctx, c.userID, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrQuizSubmitted) {
			c.stopMonitor(sessionID)
			return
		}
		c.log.Warn("failed to record integrity flag", "session_id", sessionID, "error", err)
		return
	}
	c.send(msgIntegrityWarning, models.IntegrityWarning{SessionID: sessionID, IntegrityFlags: flags})
}

func (c *client) stopMonitor(sessionID uuid.UUID) {
	c.mu.Lock()
	sm, ok := c.monitors[sessionID]
	delete(c.monitors, sessionID)
	c.mu.Unlock()

	if ok {
		sm.monitor.Stop()
		c.log.Debug("integrity monitor stopped", "session_id", sessionID)
	}
}

func (c *client) stopAllMonitors() {
	c.mu.Lock()
	monitors := c.monitors
	c.monitors = make(map[uuid.UUID]*sessionMonitor)
	c.mu.Unlock()

	for _, sm := range monitors {
		sm.monitor.Stop()
	}
}

func (c *client) sendMonitorError(sessionID uuid.UUID, err error) {
	code, message := "MONITOR_UNAVAILABLE", "Integrity monitoring could not be started"
	var forbidden *services.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		code, message = "FORBIDDEN", forbidden.Message
	case errors.Is(err, models.ErrQuizSubmitted):
		code, message = "QUIZ_SUBMITTED", "This quiz has already been submitted"
	default:
		c.log.Warn("failed to start integrity monitor", "session_id", sessionID, "error", err)
	}
	c.send(msgError, monitorError{SessionID: sessionID, ErrorCode: code, ErrorMessage: message})
}
