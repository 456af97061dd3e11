package services

import (
	"context"
	"time"

	"studybuddy-backend/internal/logger"
)

const (
	sessionSweepInterval = 5 * time.Minute
	// Sessions without a heartbeat for this long are closed at their last heartbeat.
	sessionIdleTimeout = 10 * time.Minute
)

type staleSessionCloser interface {
	CloseStale(ctx context.Context, heartbeatBefore time.Time) (int64, error)
}

// SessionSweeper closes study sessions whose client went away without
// calling stop.
type SessionSweeper struct {
	repo     staleSessionCloser
	log      *logger.Logger
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
}

func NewSessionSweeper(repo staleSessionCloser, log *logger.Logger) *SessionSweeper {
	return &SessionSweeper{
		repo:     repo,
		log:      log.With("service", "SessionSweeper"),
		interval: sessionSweepInterval,
		timeout:  sessionIdleTimeout,
		stopChan: make(chan struct{}),
	}
}

func (s *SessionSweeper) Start() {
	if s.repo == nil {
		return
	}
	go s.loop()
	s.log.Info("session sweeper started", "interval", s.interval.String())
}

func (s *SessionSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SessionSweeper) loop() {
	s.sweep(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.sweep(context.Background(), now.UTC())
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	closed, err := s.repo.CloseStale(ctx, now.Add(-s.timeout))
	if err != nil {
		s.log.Error("failed to close stale study sessions", "error", err)
		return
	}
	if closed > 0 {
		s.log.Info("closed stale study sessions", "count", closed)
	}
}
