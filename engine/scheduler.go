package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler polls on a fixed interval until its context is cancelled.
// At most one poll is in flight; ticks that land while a poll is still
// running are dropped. Results are delivered on the Run goroutine, one at a
// time, so the consumer never runs concurrently with itself.
type Scheduler struct {
	poller   *Poller
	interval time.Duration
	deliver  func(PollResult)
	logger   *zap.Logger

	newTicker func(time.Duration) (<-chan time.Time, func())
	skipped   int
}

// NewScheduler creates a scheduler that hands every poll result to deliver.
func NewScheduler(p *Poller, interval time.Duration, deliver func(PollResult), logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		poller:   p,
		interval: interval,
		deliver:  deliver,
		logger:   logger,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run polls immediately, then on every tick, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticks, stop := s.newTicker(s.interval)
	defer stop()

	results := make(chan PollResult, 1)
	inFlight := false
	start := func() {
		inFlight = true
		go func() { results <- s.poller.Poll(ctx) }()
	}

	start()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			if inFlight {
				s.skipped++
				s.logger.Debug("poll still in flight, skipping tick", zap.Int("skipped", s.skipped))
				continue
			}
			start()
		case r := <-results:
			inFlight = false
			if ctx.Err() != nil {
				return nil
			}
			s.deliver(r)
		}
	}
}

// Start runs the scheduler in the background. The returned function stops
// it and waits for Run to return.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
