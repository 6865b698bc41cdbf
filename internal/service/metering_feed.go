package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/riteshkumar/greengrid/internal/utils"
)

const (
	DefaultMeterInterval = 3 * time.Second

	minReadingKwh  = 0.1
	readingSpanKwh = 1.1
)

// Sampler produces one generation reading in kWh.
type Sampler func() float64

// UniformSampler draws readings uniformly from [0.1, 1.2) kWh, rounded to
// 3 decimals.
func UniformSampler(r *rand.Rand) Sampler {
	return func() float64 {
		return utils.Round(minReadingKwh+r.Float64()*readingSpanKwh, utils.EnergyPlaces)
	}
}

// ReadingHandler consumes a reading produced by the feed.
type ReadingHandler func(ctx context.Context, kwh float64) error

// MeteringFeed emits one reading per interval while running. Stopping drops
// future readings; nothing is buffered or replayed on restart.
type MeteringFeed struct {
	clock    clock.Clock
	interval time.Duration
	handle   ReadingHandler
	logger   *slog.Logger

	mu          sync.Mutex
	sample      Sampler
	lastReading float64
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewMeteringFeed(clk clock.Clock, interval time.Duration, sample Sampler, handle ReadingHandler, logger *slog.Logger) *MeteringFeed {
	if interval <= 0 {
		interval = DefaultMeterInterval
	}
	return &MeteringFeed{
		clock:    clk,
		interval: interval,
		sample:   sample,
		handle:   handle,
		logger:   logger,
	}
}

// Start launches the ticker loop. It returns false if the feed is already
// running.
func (f *MeteringFeed) Start(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := f.clock.Ticker(f.interval)
	f.cancel = cancel
	f.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if runCtx.Err() != nil {
					return
				}
				if _, err := f.Tick(runCtx); err != nil {
					f.logger.Warn("metering tick failed", "error", err.Error())
				}
			}
		}
	}()

	f.logger.Info("metering started", "interval", f.interval.String())
	return true
}

// Stop cancels the loop and waits for an in-flight tick to finish, so no
// reading is applied after Stop returns.
func (f *MeteringFeed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	f.logger.Info("metering stopped")
}

func (f *MeteringFeed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

func (f *MeteringFeed) LastReading() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReading
}

// Tick samples one reading and hands it to the handler synchronously.
func (f *MeteringFeed) Tick(ctx context.Context) (float64, error) {
	f.mu.Lock()
	kwh := f.sample()
	f.lastReading = kwh
	f.mu.Unlock()

	return kwh, f.handle(ctx, kwh)
}
