package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ftahirops/circuittop/collector"
	"github.com/ftahirops/circuittop/model"
)

// FallbackAlert is raised once for every poll that had to use the fallback.
const FallbackAlert = "Error while getting power data! Using Testing Data."

// Alerter is the user-visible warning surface.
type Alerter interface {
	Alert(msg string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(msg string)

// Alert implements Alerter.
func (f AlertFunc) Alert(msg string) { f(msg) }

// PollResult is the outcome of one poll cycle. Dataset is always usable.
type PollResult struct {
	ID       string
	At       time.Time
	Dataset  model.Dataset
	Fallback bool
	Err      error  // cause of the fallback, nil on success
	Alert    string // message raised for this cycle, "" on success
	Source   string
	Events   []FuseEvent // fuse trips opened or closed by this dataset
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	// Fallback supplies the substitute dataset. Defaults to model.FallbackDataset.
	Fallback func() model.Dataset
	Alerter  Alerter
	Logger   *zap.Logger
	// Events tracks fuse trips on live datasets; fallback data is ignored.
	Events *EventDetector
	// OnEvent receives each fuse event as it opens or closes.
	OnEvent func(FuseEvent)
}

// Poller runs a single retrieval against a Source, falling back to canned
// data on any failure.
type Poller struct {
	source   collector.Source
	fallback func() model.Dataset
	alerter  Alerter
	logger   *zap.Logger
	events   *EventDetector
	onEvent  func(FuseEvent)
	now      func() time.Time
}

// NewPoller creates a poller for src.
func NewPoller(src collector.Source, opts PollerOptions) *Poller {
	p := &Poller{
		source:   src,
		fallback: opts.Fallback,
		alerter:  opts.Alerter,
		logger:   opts.Logger,
		events:   opts.Events,
		onEvent:  opts.OnEvent,
		now:      time.Now,
	}
	if p.fallback == nil {
		p.fallback = model.FallbackDataset
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Poll never fails: errors and panics from the source become the fallback
// path, which raises FallbackAlert exactly once.
func (p *Poller) Poll(ctx context.Context) PollResult {
	res := PollResult{
		ID:     uuid.NewString(),
		At:     p.now(),
		Source: p.source.Name(),
	}

	ds, err := p.collect(ctx)
	if err == nil {
		res.Dataset = ds
		p.logger.Debug("poll ok",
			zap.String("poll_id", res.ID),
			zap.String("source", res.Source),
			zap.Int("circuits", len(ds)))
		p.trackFuses(&res)
		return res
	}

	res.Dataset = p.fallback()
	res.Fallback = true
	res.Err = err
	res.Alert = FallbackAlert
	p.logger.Warn("poll failed, using fallback data",
		zap.String("poll_id", res.ID),
		zap.String("source", res.Source),
		zap.Error(err))
	if p.alerter != nil {
		p.alerter.Alert(res.Alert)
	}
	return res
}

func (p *Poller) trackFuses(res *PollResult) {
	if p.events == nil {
		return
	}
	res.Events = p.events.Process(res.Dataset, res.At)
	for _, ev := range res.Events {
		p.logger.Info("fuse event",
			zap.String("poll_id", res.ID),
			zap.String("circuit", string(ev.Circuit)),
			zap.Bool("active", ev.Active),
			zap.Int("duration_sec", ev.Duration))
		if p.onEvent != nil {
			p.onEvent(ev)
		}
	}
}

func (p *Poller) collect(ctx context.Context) (ds model.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("source %s panicked: %v", p.source.Name(), r)
		}
	}()
	ds, err = p.source.Collect(ctx)
	if err == nil && ds == nil {
		ds = model.Dataset{}
	}
	return ds, err
}
