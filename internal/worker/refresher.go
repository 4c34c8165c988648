package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/scoreboard-gateway/internal/config"
)

// Refresher is the part of the scoreboard service the worker drives
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshWorker periodically recomputes the scoreboard so that side outputs
// stay current even when nobody is calling the HTTP API
type RefreshWorker struct {
	service Refresher
	config  *config.RefreshConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(service Refresher, cfg *config.RefreshConfig, logger *slog.Logger) *RefreshWorker {
	return &RefreshWorker{
		service: service,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the background refresh loop
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx, w.stopCh, w.doneCh)
	return nil
}

// Stop stops the background refresh loop and waits for it to exit
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	w.logger.Info("refresh worker stopped")
	return nil
}

func (w *RefreshWorker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single refresh cycle
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	start := time.Now()
	if err := w.service.Refresh(ctx); err != nil {
		w.logger.Error("scoreboard refresh failed", "error", err)
		return
	}
	w.logger.Debug("scoreboard refreshed", "duration", time.Since(start))
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
