package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Reevaluator re-scores every stored session.
type Reevaluator interface {
	ReevaluateAll(ctx context.Context, maxRetries int, retryDelay time.Duration) (int, error)
}

// Scheduler re-runs the accuracy evaluation on a cron spec so stored scores
// track model changes over time.
type Scheduler struct {
	Orch       Reevaluator
	Cron       string
	MaxRetries int
	RetryDelay time.Duration
	Logger     *log.Logger
	Stop       chan struct{}
}

func (s *Scheduler) Start() {
	go func() {
		for {
			expr, err := cronexpr.Parse(s.Cron)
			if err != nil {
				s.Logger.Printf("invalid cron spec %q: %v", s.Cron, err)
				return
			}
			next := expr.Next(time.Now())
			if next.IsZero() {
				return
			}
			select {
			case <-s.Stop:
				return
			case <-time.After(time.Until(next)):
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	updated, err := s.Orch.ReevaluateAll(ctx, s.MaxRetries, s.RetryDelay)
	if err != nil {
		s.Logger.Printf("re-evaluation failed: %v", err)
		return
	}
	s.Logger.Printf("re-evaluated %d sessions", updated)
}
