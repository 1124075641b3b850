package service

import (
	"context"
	"fmt"

	"github.com/edirooss/obsdelay-server/internal/domain/delay"
	"github.com/edirooss/obsdelay-server/internal/obs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FilterClient is the slice of the OBS control session the delay service
// needs. Satisfied by *obs.Client; faked in tests.
type FilterClient interface {
	GetSourceFilter(ctx context.Context, sourceName, filterName string) (*obs.Filter, error)
	SetSourceFilterSettings(ctx context.Context, sourceName, filterName string, settings obs.FilterSettings, overlay bool) error
}

// DelayService reads and writes the render delay filter across the
// configured sources.
//
// Contract
//   - ListDelays never fails: a source whose read fails reports the
//     delay.Unknown sentinel, other sources are unaffected.
//   - UpdateDelay forwards any source name and value as-is; the device is
//     the authority on what exists and what is acceptable.
//   - Nothing is cached. Every read hits the device.
type DelayService struct {
	log        *zap.Logger
	client     FilterClient
	filterName string
}

// NewDelayService wires the control session and the managed filter name.
func NewDelayService(log *zap.Logger, client FilterClient, filterName string) *DelayService {
	if filterName == "" {
		filterName = delay.DefaultFilterName
	}
	return &DelayService{
		log:        log.Named("delay_service"),
		client:     client,
		filterName: filterName,
	}
}

// ListDelays fetches the current delay of every source concurrently and
// returns one reading per source, in input order regardless of completion
// order. Per-source failures fold into the sentinel; the aggregate itself
// cannot fail.
func (s *DelayService) ListDelays(ctx context.Context, sources []string) []delay.Reading {
	readings := make([]delay.Reading, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range sources {
		g.Go(func() error {
			readings[i] = s.readOne(ctx, name)
			return nil
		})
	}
	g.Wait() // goroutines never error

	return readings
}

func (s *DelayService) readOne(ctx context.Context, sourceName string) delay.Reading {
	f, err := s.client.GetSourceFilter(ctx, sourceName, s.filterName)
	if err != nil {
		s.log.Warn("delay read failed",
			zap.String("source", sourceName),
			zap.String("filter", s.filterName),
			zap.Error(err))
		return delay.Reading{Source: sourceName, DelayMS: delay.Unknown}
	}

	ms, ok := f.Settings.DelayMS()
	if !ok {
		s.log.Warn("filter settings carry no delay_ms",
			zap.String("source", sourceName),
			zap.String("filter", s.filterName))
		return delay.Reading{Source: sourceName, DelayMS: delay.Unknown}
	}

	return delay.Reading{Source: sourceName, DelayMS: ms}
}

// UpdateDelay writes a new delay for one source. The source name is not
// checked against the configured list and the value is not range-checked;
// both pass through and the device rejects what it won't take.
func (s *DelayService) UpdateDelay(ctx context.Context, sourceName string, delayMS int64) error {
	settings := obs.FilterSettings{"delay_ms": delayMS}
	if err := s.client.SetSourceFilterSettings(ctx, sourceName, s.filterName, settings, true); err != nil {
		return fmt.Errorf("set delay on %q: %w", sourceName, err)
	}

	s.log.Info("render delay updated",
		zap.String("source", sourceName),
		zap.Int64("delay_ms", delayMS))
	return nil
}
