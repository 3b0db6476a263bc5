package media

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Deleter removes a stored media object by its public location.
type Deleter interface {
	Delete(ctx context.Context, location string) error
}

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize     int
	Workers       int
	DeleteTimeout time.Duration
}

// Janitor deletes media objects in the background once the rows that
// referenced them are gone. Failures are logged and dropped.
type Janitor struct {
	deleter Deleter
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	wg     sync.WaitGroup
	once   sync.Once
}

var errJanitorClosed = errors.New("media janitor closed")

// NewJanitor starts the worker pool.
func NewJanitor(deleter Deleter, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &Janitor{
		deleter: deleter,
		logger:  logger,
		timeout: cfg.DeleteTimeout,
		jobs:    make(chan string, cfg.QueueSize),
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}
	return j
}

// Enqueue schedules deletion of each non-empty location. It blocks while the
// queue is full, until ctx is done.
func (j *Janitor) Enqueue(ctx context.Context, locations ...string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return errJanitorClosed
	}

	for _, location := range locations {
		if strings.TrimSpace(location) == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j.jobs <- location:
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()
	for location := range j.jobs {
		j.delete(location)
	}
}

func (j *Janitor) delete(location string) {
	if j.deleter == nil {
		j.logger.Error("media janitor missing deleter", "location", location)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.deleter.Delete(ctx, location); err != nil {
		j.logger.Error("delete media object", "location", location, "error", err)
		return
	}
	j.logger.Debug("deleted media object", "location", location)
}
