package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/circuittop/model"
)

// fakeSource replays a scripted sequence of results.
type fakeSource struct {
	mu    sync.Mutex
	steps []func() (model.Dataset, error)
	calls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Collect(ctx context.Context) (model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	return f.steps[i]()
}

func ok(ds model.Dataset) func() (model.Dataset, error) {
	return func() (model.Dataset, error) { return ds.Clone(), nil }
}

func fail(err error) func() (model.Dataset, error) {
	return func() (model.Dataset, error) { return nil, err }
}

func circuits(ids ...string) model.Dataset {
	recs := make([]model.CircuitRecord, len(ids))
	for i, id := range ids {
		recs[i] = model.CircuitRecord{CircuitID: model.CircuitID(id), PowerCapacity: float64(i * 10)}
	}
	return model.NewDataset(recs...)
}

type countingAlerter struct{ msgs []string }

func (c *countingAlerter) Alert(msg string) { c.msgs = append(c.msgs, msg) }

func TestRenderState_SuppressesEqualDatasets(t *testing.T) {
	s := NewRenderState()
	var builds []model.Dataset
	view := ViewFunc(func(ds model.Dataset) { builds = append(builds, ds) })

	a := circuits("1", "2")
	aAgain := circuits("1", "2")
	b := circuits("1", "3")

	assert.True(t, s.Offer(a, view))
	assert.False(t, s.Offer(aAgain, view), "value-equal dataset must not rebuild")
	assert.True(t, s.Offer(b, view))
	assert.False(t, s.Offer(b, view))
	assert.True(t, s.Offer(a, view))

	assert.Equal(t, 3, s.Renders())
	require.Len(t, builds, 3)
	assert.True(t, builds[1].Equal(b))
}

func TestRenderState_FirstEmptyDatasetRenders(t *testing.T) {
	s := NewRenderState()
	assert.True(t, s.ShouldRender(model.Dataset{}))
	s.Commit(model.Dataset{})
	assert.False(t, s.ShouldRender(nil))

	cur, ok := s.Current()
	assert.True(t, ok)
	assert.Empty(t, cur)
}

func TestRenderState_HeldDatasetIsIsolated(t *testing.T) {
	s := NewRenderState()
	ds := circuits("1")
	s.Commit(ds)
	ds[0].Record.PowerCapacity = 999

	assert.True(t, s.ShouldRender(ds), "mutating the caller's slice must not change the held value")
}

func TestPoller_Success(t *testing.T) {
	alerts := &countingAlerter{}
	src := &fakeSource{steps: []func() (model.Dataset, error){ok(circuits("7"))}}
	p := NewPoller(src, PollerOptions{Alerter: alerts})

	res := p.Poll(context.Background())
	assert.False(t, res.Fallback)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Alert)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "fake", res.Source)
	assert.True(t, res.Dataset.Equal(circuits("7")))
	assert.Empty(t, alerts.msgs)
}

func TestPoller_FailureUsesFallbackAndAlertsOnce(t *testing.T) {
	alerts := &countingAlerter{}
	cause := errors.New("connection refused")
	src := &fakeSource{steps: []func() (model.Dataset, error){fail(cause)}}
	p := NewPoller(src, PollerOptions{Alerter: alerts})

	res := p.Poll(context.Background())
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, cause)
	assert.Equal(t, FallbackAlert, res.Alert)
	assert.True(t, res.Dataset.Equal(model.FallbackDataset()))
	assert.Equal(t, []string{FallbackAlert}, alerts.msgs)
}

func TestPoller_SourcePanicIsContained(t *testing.T) {
	alerts := &countingAlerter{}
	src := &fakeSource{steps: []func() (model.Dataset, error){
		func() (model.Dataset, error) { panic("boom") },
	}}
	fallback := circuits("fb")
	p := NewPoller(src, PollerOptions{Alerter: alerts, Fallback: func() model.Dataset { return fallback.Clone() }})

	var res PollResult
	require.NotPanics(t, func() { res = p.Poll(context.Background()) })
	assert.True(t, res.Fallback)
	assert.True(t, res.Dataset.Equal(fallback))
	assert.Len(t, alerts.msgs, 1)
}

func TestPoller_NilDatasetBecomesEmpty(t *testing.T) {
	src := &fakeSource{steps: []func() (model.Dataset, error){ok(nil)}}
	res := NewPoller(src, PollerOptions{}).Poll(context.Background())
	assert.False(t, res.Fallback)
	assert.NotNil(t, res.Dataset)
}

func TestPipeline_RenderCountMatchesDistinctValues(t *testing.T) {
	a, b := circuits("1", "2"), circuits("2", "1")
	src := &fakeSource{steps: []func() (model.Dataset, error){
		ok(a), ok(a), ok(b), ok(b), ok(a), fail(errors.New("down")), fail(errors.New("down")),
	}}
	alerts := &countingAlerter{}
	p := NewPoller(src, PollerOptions{Alerter: alerts})
	s := NewRenderState()
	var shown []model.Dataset
	view := ViewFunc(func(ds model.Dataset) { shown = append(shown, ds) })

	for i := 0; i < 7; i++ {
		s.Offer(p.Poll(context.Background()).Dataset, view)
	}

	// a, b, a, fallback: repeated values and the second failure do not rebuild.
	assert.Equal(t, 4, s.Renders())
	require.Len(t, shown, 4)
	assert.True(t, shown[3].Equal(model.FallbackDataset()))
	assert.Len(t, alerts.msgs, 2, "one alert per failed poll")
}

// manualTicker lets tests drive the scheduler tick by tick.
type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) factory(time.Duration) (<-chan time.Time, func()) {
	return m.c, func() { close(m.stopped) }
}

func TestScheduler_DeliversAndStops(t *testing.T) {
	src := &fakeSource{steps: []func() (model.Dataset, error){ok(circuits("1")), fail(errors.New("x")), ok(circuits("2"))}}
	p := NewPoller(src, PollerOptions{})

	got := make(chan PollResult, 10)
	s := NewScheduler(p, time.Second, func(r PollResult) { got <- r }, nil)
	mt := newManualTicker()
	s.newTicker = mt.factory

	stop := s.Start(context.Background())

	first := <-got
	assert.False(t, first.Fallback)

	mt.c <- time.Now()
	second := <-got
	assert.True(t, second.Fallback)

	mt.c <- time.Now()
	third := <-got
	assert.True(t, third.Dataset.Equal(circuits("2")))

	stop()
	select {
	case <-mt.stopped:
	default:
		t.Fatal("ticker was not stopped")
	}
}

// blockingSource holds every Collect until released.
type blockingSource struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingSource) Name() string { return "blocking" }

func (b *blockingSource) Collect(ctx context.Context) (model.Dataset, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	select {
	case <-b.release:
		return circuits("1"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingSource) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestScheduler_SkipsTicksWhilePollInFlight(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	got := make(chan PollResult, 10)
	s := NewScheduler(NewPoller(src, PollerOptions{}), time.Second, func(r PollResult) { got <- r }, nil)
	mt := newManualTicker()
	s.newTicker = mt.factory

	stop := s.Start(context.Background())
	defer stop()
	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, time.Millisecond)

	// Unbuffered sends only complete once the Run loop has received them.
	mt.c <- time.Now()
	mt.c <- time.Now()
	mt.c <- time.Now()
	assert.Equal(t, 1, src.Calls(), "ticks during an in-flight poll must not start another")

	close(src.release)
	<-got

	mt.c <- time.Now()
	<-got
	assert.Equal(t, 2, src.Calls())
}
