package services

import (
	"context"
	"time"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/storage"
)

const (
	orphanSweepInterval = time.Hour
	// Objects younger than this may belong to an upload still in flight.
	orphanGracePeriod = time.Hour
)

type objectLister interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, key string) error
}

type documentKeyChecker interface {
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

// OrphanCollector deletes stored objects that no document row refers to.
// They are left behind when an upload fails after the object was written
// and the compensating delete failed too.
type OrphanCollector struct {
	store    objectLister
	docs     documentKeyChecker
	log      *logger.Logger
	interval time.Duration
	grace    time.Duration
	stopChan chan struct{}
}

func NewOrphanCollector(store objectLister, docs documentKeyChecker, log *logger.Logger) *OrphanCollector {
	return &OrphanCollector{
		store:    store,
		docs:     docs,
		log:      log.With("service", "OrphanCollector"),
		interval: orphanSweepInterval,
		grace:    orphanGracePeriod,
		stopChan: make(chan struct{}),
	}
}

func (c *OrphanCollector) Start() {
	go c.loop()
	c.log.Info("orphan collector started", "interval", c.interval.String())
}

func (c *OrphanCollector) Stop() {
	select {
	case <-c.stopChan:
		return
	default:
		close(c.stopChan)
	}
}

func (c *OrphanCollector) loop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case now := <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := c.collect(ctx, now); err != nil {
				c.log.Error("orphan collection failed", "error", err)
			}
			cancel()
		}
	}
}

func (c *OrphanCollector) collect(ctx context.Context, now time.Time) (int, error) {
	objects, err := c.store.List(ctx, "")
	if err != nil {
		return 0, err
	}

	var candidates []string
	for _, obj := range objects {
		if now.Sub(obj.Updated) >= c.grace {
			candidates = append(candidates, obj.Key)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	existing, err := c.docs.ExistingKeys(ctx, candidates)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range candidates {
		if existing[key] {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn("failed to delete orphaned object", "key", key, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		c.log.Info("deleted orphaned objects", "count", deleted)
	}
	return deleted, nil
}
