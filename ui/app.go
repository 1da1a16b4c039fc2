package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ftahirops/circuittop/collector"
	"github.com/ftahirops/circuittop/engine"
	"github.com/ftahirops/circuittop/model"
)

// alertTTL is how long the fallback banner stays up.
const alertTTL = 5 * time.Second

// historyLen bounds the consumption trend kept for the title sparkline.
const historyLen = 60

type tickMsg time.Time

type pollMsg engine.PollResult

type resetDoneMsg struct {
	id  model.CircuitID
	err error
}

// Options configures the dashboard model.
type Options struct {
	Ctx      context.Context
	Poller   *engine.Poller
	Resetter collector.Resetter // nil disables the reset controls
	Sorter   engine.SortHandler // nil means engine.NopSort
	Interval time.Duration
	Logger   *zap.Logger
	Source   string
}

// Model is the bubbletea model for the circuit dashboard.
type Model struct {
	ctx      context.Context
	poller   *engine.Poller
	resetter collector.Resetter
	sorter   engine.SortHandler
	interval time.Duration
	logger   *zap.Logger
	source   string
	width    int
	height   int

	// Render state: the last accepted dataset and the table built from it
	state       *engine.RenderState
	table       *Table
	lastRebuild time.Time
	history     *engine.History

	// Sort controls
	sortCol model.Column
	sortDir model.Direction
	sorted  bool

	// Cursor
	selected int
	focus    model.Column

	// Polling
	inFlight bool
	paused   bool
	fallback bool
	lastPoll string
	lastErr  error

	// Alert banner
	alert   string
	alertAt time.Time

	spinner  spinner.Model
	help     help.Model
	showHelp bool

	now func() time.Time
}

// NewModel creates the dashboard. Init issues the first poll right away.
func NewModel(opts Options) Model {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.Sorter == nil {
		opts.Sorter = engine.NopSort
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	m := Model{
		ctx:      opts.Ctx,
		poller:   opts.Poller,
		resetter: opts.Resetter,
		sorter:   opts.Sorter,
		interval: opts.Interval,
		logger:   opts.Logger,
		source:   opts.Source,
		state:    engine.NewRenderState(),
		history:  engine.NewHistory(historyLen),
		focus:    model.ColCircuitID,
		inFlight: true,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
		help:     help.New(),
		now:      time.Now,
	}
	m.table = BuildTable(nil, nil)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), pollOnce(m.ctx, m.poller), m.spinner.Tick)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func pollOnce(ctx context.Context, p *engine.Poller) tea.Cmd {
	return func() tea.Msg {
		return pollMsg(p.Poll(ctx))
	}
}

// resetCmd binds id now; later table rebuilds cannot change its target.
func (m Model) resetCmd(id model.CircuitID) tea.Cmd {
	if m.resetter == nil {
		return nil
	}
	ctx, resetter := m.ctx, m.resetter
	return func() tea.Msg {
		return resetDoneMsg{id: id, err: resetter.ResetCircuit(ctx, id)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp && !key.Matches(msg, keys.Quit) {
			m.showHelp = false
			m.help.ShowAll = false
			return m, nil
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.showHelp = true
			m.help.ShowAll = true
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
			if !m.paused && !m.inFlight {
				// Resume: poll immediately
				m.inFlight = true
				return m, pollOnce(m.ctx, m.poller)
			}
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.table.Rows)-1 {
				m.selected++
			}
		case key.Matches(msg, keys.Left):
			if m.focus > 0 {
				m.focus--
			}
		case key.Matches(msg, keys.Right):
			if m.focus < model.ColumnCount-1 {
				m.focus++
			}
		case key.Matches(msg, keys.SortAsc):
			return m, m.table.Header[m.focus].Asc.Activate()
		case key.Matches(msg, keys.SortDesc):
			return m, m.table.Header[m.focus].Desc.Activate()
		case key.Matches(msg, keys.Reset):
			if m.selected < len(m.table.Rows) {
				return m, m.table.Rows[m.selected].Reset
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case tickMsg:
		if m.paused || m.inFlight {
			return m, tick(m.interval)
		}
		m.inFlight = true
		return m, tea.Batch(tick(m.interval), pollOnce(m.ctx, m.poller))
	case pollMsg:
		m.inFlight = false
		if m.paused {
			return m, nil
		}
		m.accept(engine.PollResult(msg))
	case sortRequestMsg:
		m.sortCol = msg.Column
		m.sortDir = msg.Direction
		m.sorted = true
		if ds, ok := m.state.Current(); ok {
			m.rebuild(ds)
		}
		m.logger.Debug("sort requested",
			zap.Stringer("column", msg.Column),
			zap.Stringer("direction", msg.Direction))
	case resetDoneMsg:
		if msg.err != nil {
			m.logger.Warn("reset failed", zap.String("circuit", string(msg.id)), zap.Error(msg.err))
		} else {
			m.logger.Info("reset sent", zap.String("circuit", string(msg.id)))
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// accept records a poll outcome and rebuilds the table only when the
// dataset differs from the one on screen.
func (m *Model) accept(res engine.PollResult) {
	m.fallback = res.Fallback
	m.lastPoll = res.ID
	m.lastErr = res.Err
	if res.Alert != "" {
		m.alert = res.Alert
		m.alertAt = res.At
	}
	for _, ev := range res.Events {
		if ev.Active {
			m.alert = ev.Message()
			m.alertAt = res.At
		}
	}
	m.state.Offer(res.Dataset, engine.ViewFunc(func(ds model.Dataset) {
		m.rebuild(ds)
		m.record(ds)
	}))
}

// rebuild replaces the table wholesale from ds, applying the active sort.
func (m *Model) rebuild(ds model.Dataset) {
	view := ds
	if m.sorted {
		view = m.sorter.Sort(m.sortCol, m.sortDir, ds)
	}
	m.table = BuildTable(view, m.resetCmd)
	if m.selected >= len(m.table.Rows) {
		m.selected = len(m.table.Rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.lastRebuild = m.now()
}

// record adds the dataset's totals to the trend.
func (m *Model) record(ds model.Dataset) {
	m.history.Push(engine.Sample{At: m.now(), Totals: engine.Summarize(ds)})
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	var sb strings.Builder
	sb.WriteString(m.renderTitle())
	sb.WriteByte('\n')

	if m.alert != "" && m.now().Sub(m.alertAt) < alertTTL {
		sb.WriteString(bannerStyle.Render(m.alert))
		sb.WriteByte('\n')
	}

	current, ok := m.state.Current()
	if !ok {
		sb.WriteString(m.spinner.View() + " Waiting for first poll...\n")
	} else {
		sb.WriteString(renderTable(m.table, tableView{
			selected: m.selected,
			focus:    m.focus,
			sortCol:  m.sortCol,
			sortDir:  m.sortDir,
			sorted:   m.sorted,
			width:    m.width,
		}))
		sb.WriteByte('\n')
		if len(current) == 0 {
			sb.WriteString(dimStyle.Render(" no circuits reported") + "\n")
		}
	}

	sb.WriteString(m.renderStatusBar())
	return sb.String()
}

func (m Model) renderTitle() string {
	parts := []string{titleStyle.Render("circuittop")}
	if m.source != "" {
		parts = append(parts, dimStyle.Render(m.source))
	}
	if ds, ok := m.state.Current(); ok {
		parts = append(parts, valueStyle.Render(fmt.Sprintf("%d circuits", len(ds))))
		if n := ds.FuseCount(); n > 0 {
			parts = append(parts, critStyle.Render(fmt.Sprintf("%d fuse tripped", n)))
		}
		trend := m.history.Consumed()
		lo, hi := bounds(trend)
		parts = append(parts, dimStyle.Render("consumed")+" "+sparkline(trend, 20, lo, hi))
	}
	switch {
	case m.paused:
		parts = append(parts, warnStyle.Render("PAUSED"))
	case m.fallback:
		parts = append(parts, critStyle.Render("FALLBACK"))
	default:
		parts = append(parts, okStyle.Render("LIVE"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderStatusBar() string {
	var left []string
	if !m.lastRebuild.IsZero() {
		left = append(left, "updated "+humanize.Time(m.lastRebuild))
	}
	left = append(left, fmt.Sprintf("renders %d", m.state.Renders()))
	if m.lastPoll != "" {
		left = append(left, "poll "+truncate(m.lastPoll, 8))
	}
	if m.lastErr != nil {
		left = append(left, critStyle.Render(truncate(m.lastErr.Error(), 60)))
	}
	line := dimStyle.Render(strings.Join(left, " | "))
	if m.width > 0 {
		line = styledPad(line, m.width)
	}
	return line + "\n" + m.help.View(keys)
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("circuittop") + " " + dimStyle.Render("keys") + "\n\n")
	sb.WriteString(m.help.View(keys))
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render(fmt.Sprintf("Polling every %s. Press any key to close.", m.interval)))
	return sb.String()
}
