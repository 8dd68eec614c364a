// Package connectivity tracks whether the remote store is currently reachable.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Monitor reports the current online/offline status. Implementations must
// answer synchronously from already-known state, never by blocking on I/O.
type Monitor interface {
	IsOnline() bool
}

// Static is a fixed-answer monitor, used in tests and forced-offline mode.
type Static bool

// IsOnline implements Monitor.
func (s Static) IsOnline() bool {
	return bool(s)
}

// Prober polls a health check in the background and caches the last result.
type Prober struct {
	check    func(ctx context.Context) error
	interval time.Duration
	online   atomic.Bool
	logger   *zap.Logger
}

// NewProber creates a monitor that runs check every interval. The monitor
// starts out offline until the first probe succeeds; call Probe for an
// immediate answer before Start.
func NewProber(check func(ctx context.Context) error, interval time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		check:    check,
		interval: interval,
		logger:   logger,
	}
}

// IsOnline returns the result of the most recent probe.
func (p *Prober) IsOnline() bool {
	return p.online.Load()
}

// Probe runs one health check immediately and updates the cached status.
func (p *Prober) Probe(ctx context.Context) bool {
	err := p.check(ctx)
	wasOnline := p.online.Swap(err == nil)

	if err != nil && wasOnline {
		p.logger.Info("connectivity lost", zap.Error(err))
	} else if err == nil && !wasOnline {
		p.logger.Info("connectivity restored")
	}

	return err == nil
}

// Start probes periodically until ctx is done.
func (p *Prober) Start(ctx context.Context) {
	p.Probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping connectivity monitor")
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
