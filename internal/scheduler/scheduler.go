// Package scheduler runs the periodic drivers: the synthetic tick
// generator and the window-based candle rollup job.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"ChartServer/internal/chartcache"
	"ChartServer/internal/domain/models"
	domrepo "ChartServer/internal/domain/repository"
	"ChartServer/internal/market"
	"ChartServer/internal/packet"
	"ChartServer/internal/resolution"
	xlogger "ChartServer/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Config controls the driver cadences and the generated instrument.
type Config struct {
	Symbol         market.Symbol
	TickInterval   time.Duration
	RollupInterval time.Duration
	StartPrice     int64
	MinPrice       int64
	MaxPrice       int64
}

// Scheduler owns the cron instance and the walk state.
type Scheduler struct {
	cron      *cron.Cron
	cache     *chartcache.Cache
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	log       *xlogger.Logger
	cfg       Config
	walk      *Walk
	now       func() time.Time
}

// New creates a scheduler with its tasks not yet registered.
func New(cache *chartcache.Cache, publisher domrepo.Publisher, m domrepo.Metrics, log *xlogger.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		log:       log,
		cfg:       cfg,
		walk:      NewWalk(cfg.StartPrice, cfg.MinPrice, cfg.MaxPrice),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Register adds the generator and rollup tasks to the cron instance.
func (s *Scheduler) Register() error {
	tickSpec := fmt.Sprintf("@every %s", s.cfg.TickInterval)
	if _, err := s.cron.AddFunc(tickSpec, s.GenerateTick); err != nil {
		return fmt.Errorf("register tick generator: %w", err)
	}

	rollupSpec := fmt.Sprintf("@every %s", s.cfg.RollupInterval)
	if _, err := s.cron.AddFunc(rollupSpec, s.RunRollup); err != nil {
		return fmt.Errorf("register rollup job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started",
		xlogger.String("symbol", s.cfg.Symbol.String()),
		xlogger.Duration("tick_interval", s.cfg.TickInterval),
		xlogger.Duration("rollup_interval", s.cfg.RollupInterval),
	)
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// GenerateTick produces one synthetic tick, stores it, and publishes the
// encoded frame. A failed cycle is logged and never stops the timer.
func (s *Scheduler) GenerateTick() {
	start := s.now()
	tick := s.walk.Next(start)

	if err := s.cache.AddTick(s.cfg.Symbol, &tick); err != nil {
		s.log.Error("tick generation failed",
			xlogger.String("symbol", s.cfg.Symbol.String()),
			xlogger.Error(err),
		)
		s.metrics.RecordError("tick_generate")
		return
	}

	frame := packet.EncodeTick(s.cfg.Symbol, tick)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, s.cfg.Symbol, domrepo.DestinationTick, frame); err != nil {
		s.log.Error("tick publish failed", xlogger.Error(err))
		s.metrics.RecordError("tick_publish")
		return
	}

	s.metrics.RecordLastPrice(s.cfg.Symbol.String(), float64(tick.Price))
	s.metrics.RecordLatency("generate_tick", time.Since(start).Seconds())
}

// RunRollup recomputes a trailing-window candle for every fixed-interval
// resolution of every instrument that has ticks in the window, writes it
// back into the cache, and publishes it. This path coexists with the
// incremental per-tick aggregation; both write the same completed history,
// last writer wins per bucket key.
func (s *Scheduler) RunRollup() {
	start := s.now()
	nowMillis := start.UnixMilli()

	for _, symbol := range market.All() {
		if _, ok := s.cache.GetLatestTick(symbol); !ok {
			continue
		}
		for _, r := range resolution.All() {
			interval, ok := r.IntervalMillis()
			if !ok {
				continue
			}
			if err := s.rollupWindow(symbol, r, nowMillis-interval, nowMillis); err != nil {
				s.log.Error("rollup cycle failed",
					xlogger.String("symbol", symbol.String()),
					xlogger.String("resolution", r.Label()),
					xlogger.Error(err),
				)
				s.metrics.RecordError("rollup")
			}
		}
	}

	s.metrics.RecordLatency("rollup", time.Since(start).Seconds())
}

func (s *Scheduler) rollupWindow(symbol market.Symbol, r resolution.Resolution, windowStart, windowEnd int64) error {
	ticks, err := s.cache.GetTicksBetween(symbol, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("read window: %w", err)
	}
	if len(ticks) == 0 {
		return nil
	}

	candle := WindowCandle(symbol, r, ticks)
	if err := s.cache.AddCandle(symbol, r, candle); err != nil {
		return fmt.Errorf("store candle: %w", err)
	}

	frame := packet.EncodeCandle(*candle)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, symbol, domrepo.DestinationCandle, frame); err != nil {
		return fmt.Errorf("publish candle: %w", err)
	}
	return nil
}

// WindowCandle derives one candle straight from an ascending tick window:
// open and close come from the first and last tick, the time span covers
// exactly the observed ticks.
func WindowCandle(symbol market.Symbol, r resolution.Resolution, ticks []models.Tick) *models.Candle {
	first := ticks[0]
	last := ticks[len(ticks)-1]

	candle := &models.Candle{
		Symbol:     symbol,
		Resolution: r,
		StartTime:  first.Timestamp,
		EndTime:    last.Timestamp,
		Open:       first.Price,
		High:       first.Price,
		Low:        first.Price,
		Close:      last.Price,
		TickCount:  len(ticks),
	}
	for _, t := range ticks {
		if t.Price > candle.High {
			candle.High = t.Price
		}
		if t.Price < candle.Low {
			candle.Low = t.Price
		}
		candle.Volume += t.Qty()
	}
	return candle
}
