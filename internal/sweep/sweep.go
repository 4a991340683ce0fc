// Package sweep runs the registry's TTL cleanup on an interval. It mirrors
// the teacher's internal/worker pattern (task type constants, an asynq
// server/mux pair) but also offers a zero-dependency ticker fallback so the
// tool works with no Redis configured.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/websoft9/portd/internal/registry"
)

// DefaultInterval is how often Cleanup runs when the caller does not
// override it.
const DefaultInterval = 30 * time.Second

// Sweeper wraps one Registry's Cleanup in a loggable, schedulable unit.
type Sweeper struct {
	registry *registry.Registry
	log      zerolog.Logger
}

// NewSweeper builds a Sweeper over reg.
func NewSweeper(reg *registry.Registry, log zerolog.Logger) *Sweeper {
	return &Sweeper{registry: reg, log: log}
}

// Tick runs one cleanup pass and logs the outcome.
func (s *Sweeper) Tick() {
	res := s.registry.Cleanup()
	if res.Cleaned > 0 {
		s.log.Info().Int("cleaned", res.Cleaned).Msg("swept expired service records")
	}
}

// Scheduler drives a Sweeper on a recurring basis until ctx is canceled.
type Scheduler interface {
	Run(ctx context.Context) error
}
