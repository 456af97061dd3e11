package services

import (
	"sync"
	"time"
)

const (
	WarningToneHz       = 440
	WarningToneDuration = 500 * time.Millisecond
)

// IntegrityPlatform is what the monitor needs from the environment the quiz
// runs in. In the server it is backed by the student's WebSocket connection.
type IntegrityPlatform interface {
	// OnVisibilityChange registers fn for visibility changes and returns a
	// function that detaches it.
	OnVisibilityChange(fn func(hidden bool)) (detach func())
	// OnFullscreenChange registers fn for fullscreen changes and returns a
	// function that detaches it.
	OnFullscreenChange(fn func(fullscreen bool)) (detach func())
	PlayTone(frequencyHz int, d time.Duration)
	RequestFullscreen() error
	ExitFullscreen() error
	// ReleaseTone frees the audio resource used by PlayTone.
	ReleaseTone()
}

type IntegrityState struct {
	IsFullscreen bool `json:"is_fullscreen"`
	HasLeftTab   bool `json:"has_left_tab"`
}

// IntegrityMonitor watches for tab switches during a quiz. It is advisory
// only: a client can suppress or fake every event it relies on, so nothing
// it reports should be treated as proof.
type IntegrityMonitor struct {
	mu       sync.Mutex
	platform IntegrityPlatform
	state    IntegrityState
	onFlag   func()
	detach   []func()
	started  bool
	stopped  bool
}

func NewIntegrityMonitor(platform IntegrityPlatform) *IntegrityMonitor {
	return &IntegrityMonitor{platform: platform}
}

// Start attaches listeners. onSuspiciousActivity runs once for every
// transition from visible to hidden. Calling Start twice is a no-op.
func (m *IntegrityMonitor) Start(onSuspiciousActivity func()) {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.onFlag = onSuspiciousActivity
	m.mu.Unlock()

	detachVis := m.platform.OnVisibilityChange(m.handleVisibility)
	detachFS := m.platform.OnFullscreenChange(m.handleFullscreen)

	m.mu.Lock()
	if m.stopped {
		// Stop ran while the listeners were being attached and found nothing
		// to detach.
		m.mu.Unlock()
		detachVis()
		detachFS()
		return
	}
	m.detach = append(m.detach, detachVis, detachFS)
	m.mu.Unlock()
}

func (m *IntegrityMonitor) handleVisibility(hidden bool) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if !hidden {
		m.state.HasLeftTab = false
		m.mu.Unlock()
		return
	}
	if m.state.HasLeftTab {
		m.mu.Unlock()
		return
	}
	m.state.HasLeftTab = true
	cb := m.onFlag
	m.mu.Unlock()

	m.platform.PlayTone(WarningToneHz, WarningToneDuration)
	if cb != nil {
		cb()
	}
}

func (m *IntegrityMonitor) handleFullscreen(fullscreen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.state.IsFullscreen = fullscreen
}

// RequestFullscreen asks the platform to enter fullscreen. State follows the
// platform's fullscreen event, not this call.
func (m *IntegrityMonitor) RequestFullscreen() error {
	return m.platform.RequestFullscreen()
}

func (m *IntegrityMonitor) ReleaseFullscreen() error {
	return m.platform.ExitFullscreen()
}

func (m *IntegrityMonitor) State() IntegrityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stop detaches listeners and releases the tone. Safe to call more than once.
func (m *IntegrityMonitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	detach := m.detach
	m.detach = nil
	m.mu.Unlock()

	for _, fn := range detach {
		if fn != nil {
			fn()
		}
	}
	m.platform.ReleaseTone()
}
