package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/models"
)

// Integrity event names reported by the browser.
const (
	eventTabHidden         = "tab-hidden"
	eventTabVisible        = "tab-visible"
	eventFullscreenEntered = "fullscreen-entered"
	eventFullscreenExited  = "fullscreen-exited"
)

// wsPlatform runs an integrity monitor against a browser tab: capability
// calls become server messages and integrity_event messages become the
// platform's visibility and fullscreen callbacks.
type wsPlatform struct {
	client    *client
	sessionID uuid.UUID

	mu         sync.Mutex
	visibility func(hidden bool)
	fullscreen func(fullscreen bool)
}

func (p *wsPlatform) OnVisibilityChange(fn func(hidden bool)) func() {
	p.mu.Lock()
	p.visibility = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.visibility = nil
		p.mu.Unlock()
	}
}

func (p *wsPlatform) OnFullscreenChange(fn func(fullscreen bool)) func() {
	p.mu.Lock()
	p.fullscreen = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.fullscreen = nil
		p.mu.Unlock()
	}
}

func (p *wsPlatform) PlayTone(frequencyHz int, d time.Duration) {
	p.client.send(msgPlayTone, models.ToneCommand{
		SessionID:   p.sessionID,
		FrequencyHz: frequencyHz,
		DurationMs:  int(d.Milliseconds()),
	})
}

func (p *wsPlatform) RequestFullscreen() error {
	return p.client.send(msgRequestFullscreen, models.FullscreenCommand{SessionID: p.sessionID})
}

func (p *wsPlatform) ExitFullscreen() error {
	return p.client.send(msgExitFullscreen, models.FullscreenCommand{SessionID: p.sessionID})
}

// ReleaseTone is a no-op: the browser owns the audio context and closes it
// when the quiz page unloads.
func (p *wsPlatform) ReleaseTone() {}

// deliver routes a browser integrity event to the registered callbacks. An
// explicit fullscreen flag wins over the event name.
func (p *wsPlatform) deliver(payload clientPayload) {
	p.mu.Lock()
	visibility, fullscreen := p.visibility, p.fullscreen
	p.mu.Unlock()

	if payload.Fullscreen != nil {
		if fullscreen != nil {
			fullscreen(*payload.Fullscreen)
		}
		return
	}

	switch payload.Event {
	case eventTabHidden, eventTabVisible:
		if visibility != nil {
			visibility(payload.Event == eventTabHidden)
		}
	case eventFullscreenEntered, eventFullscreenExited:
		if fullscreen != nil {
			fullscreen(payload.Event == eventFullscreenEntered)
		}
	}
}
