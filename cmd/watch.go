package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ftahirops/circuittop/engine"
	"github.com/ftahirops/circuittop/model"
	"github.com/ftahirops/circuittop/ui"
)

// ── ANSI color/style codes ──────────────────────────────────────────────────

const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FCyn  = "\033[36m"
	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBWht = "\033[97m"

	BRed = "\033[41m"
	BBlu = "\033[44m"

	clearScreen = "\033[2J\033[H"
)

func hr() string {
	return fmt.Sprintf("%s%s%s", D, strings.Repeat("-", 78), R)
}

// watchFrame is one redraw of the watch screen.
type watchFrame struct {
	source    string
	result    engine.PollResult
	dataset   model.Dataset
	iteration int
	count     int
}

func (f watchFrame) write(w io.Writer) {
	fmt.Fprint(w, clearScreen)

	// Title bar
	ts := f.result.At.Format("15:04:05")
	iter := fmt.Sprintf("#%d", f.iteration)
	if f.count > 0 {
		iter = fmt.Sprintf("#%d/%d", f.iteration, f.count)
	}
	status := FBGrn + "LIVE" + R
	if f.result.Fallback {
		status = B + FBRed + "FALLBACK" + R
	}
	fmt.Fprintf(w, " %s%s circuittop v%s %s  %s  %s%s%s  %s  %s\n",
		B, BBlu+FBWht, Version, R,
		B+ts+R,
		FCyn, f.source, R,
		status,
		D+iter+R)
	fmt.Fprintln(w, hr())

	if f.result.Alert != "" {
		fmt.Fprintf(w, " %s%s %s %s\n", B, BRed+FBWht, f.result.Alert, R)
	}
	for _, ev := range f.result.Events {
		color := FBGrn
		if ev.Active {
			color = B + FBRed
		}
		fmt.Fprintf(w, " %s%s%s\n", color, ev.Message(), R)
	}

	fmt.Fprint(w, ui.BuildTable(f.dataset, nil).RenderPlain())
	if len(f.dataset) == 0 {
		fmt.Fprintf(w, "%sno circuits reported%s\n", D, R)
	}
	if n := f.dataset.FuseCount(); n > 0 {
		fmt.Fprintf(w, "%s%s%d fuse tripped%s\n", B, FBRed, n, R)
	}

	fmt.Fprintln(w, hr())
	fmt.Fprintf(w, " %sCtrl+C%s to quit\n", B, R)
}

// runWatch prints the table each time a poll yields a new dataset. count
// limits the number of polls; 0 runs until ctx is done.
func runWatch(ctx context.Context, a *app, w io.Writer, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := engine.NewRenderState()
	iteration := 0

	deliver := func(res engine.PollResult) {
		iteration++
		state.Offer(res.Dataset, engine.ViewFunc(func(ds model.Dataset) {
			watchFrame{
				source:    a.sourceLabel(),
				result:    res,
				dataset:   ds,
				iteration: iteration,
				count:     count,
			}.write(w)
		}))
		if count > 0 && iteration >= count {
			cancel()
		}
	}

	err := engine.NewScheduler(a.poller, a.cfg.Interval(), deliver, a.logger).Run(ctx)
	if count == 0 || iteration < count {
		fmt.Fprintf(w, "\n%sStopped.%s\n", D, R)
	}
	return err
}
