package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ftahirops/circuittop/collector"
	"github.com/ftahirops/circuittop/config"
	"github.com/ftahirops/circuittop/engine"
	"github.com/ftahirops/circuittop/logging"
	"github.com/ftahirops/circuittop/model"
	"github.com/ftahirops/circuittop/ui"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Options holds CLI configuration. Zero values defer to the config file.
type Options struct {
	ConfigPath  string
	URL         string
	SourceFile  string
	Interval    time.Duration
	Timeout     time.Duration
	LogPath     string
	LogLevel    string
	JSONMode    bool
	WatchMode   bool
	WatchCount  int
	NoReset     bool
	Sorting     bool
	RecordPath  string
	ReplayPath  string
	DoctorMode  bool
	ShowVersion bool
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `circuittop v%s - live power circuit dashboard

Usage:
  circuittop [OPTIONS] [INTERVAL]

Modes:
  (default)         Interactive TUI (bubbletea, fullscreen)
  -watch            CLI output mode, reprints the table when it changes
  -json             Poll once, print the dataset as JSON, then exit
  -doctor           Check config, endpoint and circuit health (exit 1=warn, 2=crit)
  -version          Print version and exit

Options:
  -config PATH      Config file (default: %s)
  -url URL          Base URL of the monitoring web server
  -file PATH        Read /getPower responses from a file instead of the server
  -interval D       Poll interval (default: 1s)
  -timeout D        Poll request timeout (default: 5s, 0 = none)
  -count N          Number of polls for -watch mode (0 = infinite, default: 0)
  -sort             Order rows by the activated column (default keeps server order)
  -no-reset         Disable the reset controls
  -record FILE      Append every successful poll to FILE (JSON lines)
  -replay FILE      Replay a recorded file instead of polling the server
  -log PATH         Write JSON logs to PATH
  -log-level LEVEL  debug, info, warn or error (default: info)

Positional:
  INTERVAL          First positional arg sets interval in seconds: circuittop 5

Examples:
  circuittop -url http://factory:8080
  circuittop -watch -count 10 2
  circuittop -json | jq '.circuits[].CircuitID'
  circuittop -file testdata/power.json -watch
  circuittop -record /var/log/circuittop.jsonl
  circuittop -replay /var/log/circuittop.jsonl
`, Version, config.Path())
}

func parseArgs(args []string, stderr io.Writer) (Options, error) {
	var opts Options
	fs := flag.NewFlagSet("circuittop", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&opts.URL, "url", "", "Base URL of the monitoring web server")
	fs.StringVar(&opts.SourceFile, "file", "", "Read poll responses from a file")
	fs.DurationVar(&opts.Interval, "interval", 0, "Poll interval")
	fs.DurationVar(&opts.Timeout, "timeout", -1, "Poll request timeout (0 = none)")
	fs.StringVar(&opts.LogPath, "log", "", "Write JSON logs to this file")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level")
	fs.BoolVar(&opts.JSONMode, "json", false, "Poll once and print JSON")
	fs.BoolVar(&opts.WatchMode, "watch", false, "CLI output mode (no TUI)")
	fs.IntVar(&opts.WatchCount, "count", 0, "Number of polls for -watch (0=infinite)")
	fs.BoolVar(&opts.Sorting, "sort", false, "Order rows by the activated column")
	fs.BoolVar(&opts.NoReset, "no-reset", false, "Disable the reset controls")
	fs.StringVar(&opts.RecordPath, "record", "", "Record polls to file for later replay")
	fs.StringVar(&opts.ReplayPath, "replay", "", "Replay polls from a recorded file")
	fs.BoolVar(&opts.DoctorMode, "doctor", false, "Run health checks and exit")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")
	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	// Support positional arg for interval: `circuittop 5` = `circuittop -interval 5s`
	if rest := fs.Args(); len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("invalid interval %q", rest[0])
		}
		opts.Interval = time.Duration(n) * time.Second
	}
	if opts.WatchCount < 0 {
		return opts, fmt.Errorf("-count must not be negative")
	}
	if opts.DoctorMode && opts.WatchMode {
		return opts, fmt.Errorf("-doctor and -watch are mutually exclusive")
	}
	if opts.JSONMode && opts.WatchMode {
		return opts, fmt.Errorf("-json and -watch are mutually exclusive")
	}
	if opts.RecordPath != "" && opts.ReplayPath != "" {
		return opts, fmt.Errorf("-record and -replay are mutually exclusive")
	}
	return opts, nil
}

// applyFlags layers command-line overrides on top of the loaded config.
func applyFlags(cfg config.Config, opts Options) config.Config {
	if opts.URL != "" {
		cfg.BaseURL = opts.URL
		cfg.SourceFile = ""
	}
	if opts.SourceFile != "" {
		cfg.SourceFile = opts.SourceFile
	}
	if opts.Interval > 0 {
		cfg.IntervalMS = int(opts.Interval / time.Millisecond)
	}
	if opts.Timeout >= 0 {
		cfg.TimeoutSec = int(opts.Timeout / time.Second)
		if opts.Timeout > 0 && cfg.TimeoutSec == 0 {
			cfg.TimeoutSec = 1
		}
	}
	if opts.LogPath != "" {
		cfg.LogPath = opts.LogPath
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg
}

// app is everything the modes share.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	label    string
	source   collector.Source
	resetter collector.Resetter
	poller   *engine.Poller
	events   *engine.EventDetector
}

func newApp(cfg config.Config, logger *zap.Logger) *app {
	a := &app{cfg: cfg, logger: logger}
	if cfg.SourceFile != "" {
		a.source = collector.FileSource{Path: cfg.SourceFile}
	} else {
		client := collector.NewClient(collector.ClientOptions{
			BaseURL:   cfg.BaseURL,
			PollPath:  cfg.PollPath,
			ResetPath: cfg.ResetPath,
			Timeout:   cfg.Timeout(),
		})
		a.source = client
		a.resetter = client
	}
	a.buildPoller()
	return a
}

// buildPoller (re)creates the poller around the current source.
func (a *app) buildPoller() {
	var alerter engine.Alerter
	notifier := engine.NewNotifier(engine.AlertConfig{
		Webhook:  a.cfg.Alerts.Webhook,
		Command:  a.cfg.Alerts.Command,
		Cooldown: a.cfg.AlertCooldown(),
	}, a.logger)
	if notifier.Enabled() {
		alerter = notifier
	}

	var eventLog *engine.EventLogWriter
	if a.cfg.EventLog != "" {
		eventLog = engine.NewEventLogWriter(a.cfg.EventLog)
	}
	a.events = engine.NewEventDetector()

	a.poller = engine.NewPoller(a.source, engine.PollerOptions{
		Alerter: alerter,
		Logger:  a.logger,
		Events:  a.events,
		OnEvent: func(ev engine.FuseEvent) {
			if ev.Active && alerter != nil {
				alerter.Alert(ev.Message())
			}
			if eventLog == nil {
				return
			}
			if err := eventLog.Write(ev); err != nil {
				a.logger.Warn("event log write failed", zap.String("path", a.cfg.EventLog), zap.Error(err))
			}
		},
	})
}

// replayFrom swaps the source for a recorded file. Replays cannot reset
// circuits.
func (a *app) replayFrom(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	player, err := engine.NewPlayer(f)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}
	a.source = player
	a.resetter = nil
	a.label = "replay:" + path
	a.buildPoller()
	a.logger.Info("replaying recording", zap.String("path", path), zap.Int("frames", player.Len()))
	return nil
}

// recordTo appends every successful poll to path. The caller closes the
// returned file.
func (a *app) recordTo(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	a.source = engine.NewRecorder(a.source, f, a.logger)
	a.buildPoller()
	a.logger.Info("recording polls", zap.String("path", path))
	return f, nil
}

// sourceLabel describes where data comes from, for title bars.
func (a *app) sourceLabel() string {
	if a.label != "" {
		return a.label
	}
	if a.cfg.SourceFile != "" {
		return a.cfg.SourceFile
	}
	return a.cfg.BaseURL
}

// Run parses flags and starts the application.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// -version
	if opts.ShowVersion {
		fmt.Fprintf(stdout, "circuittop v%s\n", Version)
		return nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	cfg = applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a := newApp(cfg, logger)
	switch {
	case opts.ReplayPath != "":
		if err := a.replayFrom(opts.ReplayPath); err != nil {
			return err
		}
	case opts.RecordPath != "":
		f, err := a.recordTo(opts.RecordPath)
		if err != nil {
			return err
		}
		defer f.Close()
	}
	logger.Info("starting",
		zap.String("version", Version),
		zap.String("source", a.sourceLabel()),
		zap.Duration("interval", cfg.Interval()))

	// -doctor mode: health checks, -json selects JSON output
	if opts.DoctorMode {
		return runDoctor(ctx, a, stdout, opts.JSONMode)
	}

	// -json mode: single poll to stdout
	if opts.JSONMode {
		return runJSON(ctx, a, stdout)
	}

	// -watch mode: CLI output to terminal
	if opts.WatchMode {
		return runWatch(ctx, a, stdout, opts.WatchCount)
	}

	// Normal TUI mode
	uiOpts := ui.Options{
		Ctx:      ctx,
		Poller:   a.poller,
		Interval: cfg.Interval(),
		Logger:   logger,
		Source:   a.sourceLabel(),
	}
	if !opts.NoReset {
		uiOpts.Resetter = a.resetter
	}
	if opts.Sorting {
		uiOpts.Sorter = engine.ColumnSort
	}
	p := tea.NewProgram(ui.NewModel(uiOpts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// jsonOutput is the document printed by -json.
type jsonOutput struct {
	Timestamp string             `json:"timestamp"`
	PollID    string             `json:"poll_id"`
	Source    string             `json:"source"`
	Fallback  bool               `json:"fallback"`
	Error     string             `json:"error,omitempty"`
	Circuits  model.Dataset      `json:"circuits"`
	Events    []engine.FuseEvent `json:"events,omitempty"`
}

// runJSON polls once and writes the result as JSON.
func runJSON(ctx context.Context, a *app, w io.Writer) error {
	res := a.poller.Poll(ctx)
	out := jsonOutput{
		Timestamp: res.At.Format(time.RFC3339),
		PollID:    res.ID,
		Source:    a.sourceLabel(),
		Fallback:  res.Fallback,
		Circuits:  res.Dataset,
		Events:    res.Events,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
