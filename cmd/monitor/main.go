// monitor is a headless version of circuittop that prints one summary line
// per changed dataset to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ftahirops/circuittop/collector"
	"github.com/ftahirops/circuittop/config"
	"github.com/ftahirops/circuittop/engine"
	"github.com/ftahirops/circuittop/logging"
	"github.com/ftahirops/circuittop/model"
)

func main() {
	configPath := flag.String("config", "", "Config file path")
	url := flag.String("url", "", "Base URL of the monitoring web server")
	file := flag.String("file", "", "Read poll responses from a file")
	interval := flag.Duration("interval", 0, "Poll interval (default from config)")
	duration := flag.Int("duration", 0, "How long to run in seconds (0=forever)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.BaseURL = *url
	}
	if *file != "" {
		cfg.SourceFile = *file
	}
	if *interval > 0 {
		cfg.IntervalMS = int(*interval / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var src collector.Source
	if cfg.SourceFile != "" {
		src = collector.FileSource{Path: cfg.SourceFile}
	} else {
		src = collector.NewClient(collector.ClientOptions{
			BaseURL:   cfg.BaseURL,
			PollPath:  cfg.PollPath,
			ResetPath: cfg.ResetPath,
			Timeout:   cfg.Timeout(),
		})
	}
	notifier := engine.NewNotifier(engine.AlertConfig{
		Webhook:  cfg.Alerts.Webhook,
		Command:  cfg.Alerts.Command,
		Cooldown: cfg.AlertCooldown(),
	}, logger)
	poller := engine.NewPoller(src, engine.PollerOptions{
		Alerter: notifier,
		Logger:  logger,
		Events:  engine.NewEventDetector(),
		OnEvent: func(ev engine.FuseEvent) {
			if ev.Active {
				notifier.Alert(ev.Message())
			}
			writeEvent(os.Stdout, ev)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*duration)*time.Second)
		defer cancel()
	}

	fmt.Println("circuittop monitor - headless power output")
	fmt.Println(strings.Repeat("=", 80))

	state := engine.NewRenderState()
	sched := engine.NewScheduler(poller, cfg.Interval(), func(res engine.PollResult) {
		state.Offer(res.Dataset, engine.ViewFunc(func(ds model.Dataset) {
			writeSummary(os.Stdout, res, ds)
		}))
	}, logger)
	_ = sched.Run(ctx)

	if ctx.Err() == context.DeadlineExceeded {
		fmt.Println("\nDuration reached.")
	} else {
		fmt.Println("\nStopped.")
	}
}

// writeSummary prints totals across all circuits on one line.
func writeSummary(w io.Writer, res engine.PollResult, ds model.Dataset) {
	t := engine.Summarize(ds)
	status := "LIVE"
	if res.Fallback {
		status = "FALLBACK"
	}
	fmt.Fprintf(w, "[%s] %-8s circuits=%d cap=%.0fMW prod=%.0fMW used=%.0fMW battery=%.1f%% fuses=%d\n",
		res.At.Format("15:04:05"), status, t.Circuits, t.Capacity, t.Production, t.Consumed, t.BatteryPct, t.Fuses)
}

// writeEvent prints a fuse trip or clear.
func writeEvent(w io.Writer, ev engine.FuseEvent) {
	at := ev.StartTime
	if !ev.Active {
		at = ev.EndTime
	}
	fmt.Fprintf(w, "[%s] %-8s %s\n", at.Format("15:04:05"), "EVENT", ev.Message())
}
