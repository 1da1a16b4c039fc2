package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/circuittop/collector"
	"github.com/ftahirops/circuittop/model"
)

// ErrNoFrames is returned by a Player whose recording holds no frames.
var ErrNoFrames = errors.New("recording has no frames")

// recordFrame is one successful poll written to disk.
type recordFrame struct {
	TS       time.Time       `json:"ts"`
	Source   string          `json:"source"`
	Circuits json.RawMessage `json:"circuits"`
}

// Recorder wraps a source and records every successful collection as a
// JSON line. Failed collections are passed through unrecorded.
type Recorder struct {
	inner  collector.Source
	writer *json.Encoder
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewRecorder creates a recorder that writes JSON lines to w.
func NewRecorder(src collector.Source, w io.Writer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		inner:  src,
		writer: json.NewEncoder(w),
		logger: logger,
		now:    time.Now,
	}
}

// Name implements collector.Source.
func (r *Recorder) Name() string { return r.inner.Name() }

// Collect calls the wrapped source and records the result.
func (r *Recorder) Collect(ctx context.Context) (model.Dataset, error) {
	ds, err := r.inner.Collect(ctx)
	if err != nil {
		return ds, err
	}
	raw, merr := json.Marshal(ds)
	if merr == nil {
		r.mu.Lock()
		merr = r.writer.Encode(recordFrame{TS: r.now(), Source: r.inner.Name(), Circuits: raw})
		r.mu.Unlock()
	}
	if merr != nil {
		// Recording problems never fail the poll
		r.logger.Warn("record frame failed", zap.Error(merr))
	}
	return ds, nil
}

// Player replays recorded frames as a collector.Source. Once the last
// frame is reached it keeps returning it.
type Player struct {
	frames []model.Dataset
	idx    int
	mu     sync.Mutex
}

// NewPlayer creates a player from a recorded file (JSON lines). Frames with
// the wrong shape are skipped.
func NewPlayer(r io.Reader) (*Player, error) {
	dec := json.NewDecoder(r)
	var frames []model.Dataset
loop:
	for {
		var frame recordFrame
		err := dec.Decode(&frame)
		var syntaxErr *json.SyntaxError
		switch {
		case err == nil:
		case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
			// a truncated last line is what an interrupted recording leaves
			break loop
		case errors.As(err, &syntaxErr):
			return nil, fmt.Errorf("read recording: %w", err)
		default:
			// the bad value was consumed, move on to the next line
			continue
		}
		ds, err := model.ParseDataset(frame.Circuits)
		if err != nil {
			continue
		}
		frames = append(frames, ds)
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return &Player{frames: frames}, nil
}

// Name implements collector.Source.
func (p *Player) Name() string { return "replay" }

// Collect replays the next recorded frame (or the last frame if at EOF).
func (p *Player) Collect(ctx context.Context) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	f := p.frames[len(p.frames)-1]
	if p.idx < len(p.frames) {
		f = p.frames[p.idx]
		p.idx++
	}
	return f.Clone(), nil
}

// Len returns the number of frames available.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}
