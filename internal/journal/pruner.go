package journal

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	defaultPruneInterval = 30 * time.Minute
	pruneTimeout         = 5 * time.Minute
)

type pruneTarget interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Pruner applies journal retention in the background
type Pruner struct {
	target   pruneTarget
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPruner creates a pruner for the store. A nil clock uses wall time.
func NewPruner(target pruneTarget, interval time.Duration, clk clock.Clock, logger *zap.Logger) *Pruner {
	if interval <= 0 {
		interval = defaultPruneInterval
		logger.Info("Using default prune interval", zap.Duration("interval", interval))
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Pruner{
		target:   target,
		interval: interval,
		clock:    clk,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background prune loop
func (p *Pruner) Start() {
	p.wg.Add(1)
	go p.pruneLoop()
	p.logger.Info("Journal pruner started", zap.Duration("interval", p.interval))
}

// Stop halts the loop and waits for an in-flight prune
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.wg.Wait()
		p.logger.Info("Journal pruner stopped")
	})
}

func (p *Pruner) pruneLoop() {
	defer p.wg.Done()

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.runPrune()
		}
	}
}

func (p *Pruner) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	removed, err := p.target.Prune(ctx, p.clock.Now())
	if err != nil {
		p.logger.Error("Failed to prune journal", zap.Error(err))
		return
	}
	if removed > 0 {
		p.logger.Info("Journal pruned", zap.Int64("removed", removed))
	}
}
