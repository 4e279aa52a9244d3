// Package tui is the terminal front end: a bubbletea program that drives a
// simulator through the animation driver and paints the display pass with
// half-block characters.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/analysis"
	"github.com/san-kum/fieldsim/internal/animate"
	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/metrics"
	"github.com/san-kum/fieldsim/internal/scheduler"
	"github.com/san-kum/fieldsim/internal/solver"
)

// Screen reads back the default framebuffer. *gpu.CPUDevice implements it.
type Screen interface {
	Screen() *field.Field
}

// ForceStep is the multiplicative step of the [ and ] keys.
const ForceStep = 1.25

const historyLen = 120

type tickMsg time.Time

type paramsMsg solver.Params

type Option func(*Model)

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.logger = l }
}

func WithFPS(fps int) Option {
	return func(m *Model) {
		if fps > 0 {
			m.refresh = time.Second / time.Duration(fps)
		}
	}
}

func WithInterval(iv time.Duration) Option {
	return func(m *Model) { m.interval = iv }
}

// WithParams applies parameter sets received on ch, e.g. from a config
// file watcher, on the event goroutine.
func WithParams(ch <-chan solver.Params) Option {
	return func(m *Model) { m.params = ch }
}

// Model is the bubbletea model. Every mutation happens in Update, on the
// bubbletea goroutine.
type Model struct {
	sim    *solver.Simulator
	screen Screen
	sched  *scheduler.Manual
	driver *animate.Driver
	meter  *metrics.FPSMeter
	logger *zap.Logger

	refresh  time.Duration
	interval time.Duration
	params   <-chan solver.Params
	history  []float64
	err      error

	width, height int
}

func New(sim *solver.Simulator, screen Screen, opts ...Option) *Model {
	m := &Model{
		sim:     sim,
		screen:  screen,
		logger:  zap.NewNop(),
		refresh: time.Second / 30,
		width:   80,
		height:  32,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sched = scheduler.NewManual(time.Now())
	m.meter = metrics.NewFPSMeter(metrics.DefaultFPSWindow, nil)
	m.driver = animate.New(sim, m.sched,
		animate.WithLogger(m.logger),
		animate.WithInterval(m.interval),
		animate.WithFrameHook(m.onFrame),
		animate.WithErrorHandler(func(err error) { m.err = err }),
	)
	return m
}

func (m *Model) Driver() *animate.Driver { return m.driver }

func (m *Model) onFrame() {
	m.meter.Tick()
	snap, err := m.sim.Snapshot()
	if err != nil {
		return
	}
	m.history = append(m.history, analysis.KineticEnergy(snap))
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitParams() tea.Cmd {
	if m.params == nil {
		return nil
	}
	ch := m.params
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return paramsMsg(p)
	}
}

func (m *Model) Init() tea.Cmd {
	m.driver.Start()
	return tea.Batch(m.tick(), m.waitParams())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tickMsg:
		m.sched.Advance(time.Time(msg))
		return m, m.tick()
	case paramsMsg:
		m.sim.SetIterations(msg.Iterations)
		m.sim.SetForce(msg.Force)
		m.sim.SetGain(msg.Gain)
		m.logger.Info("parameters updated",
			zap.Int("iterations", msg.Iterations),
			zap.Float32("force", msg.Force),
			zap.Float32("gain", msg.Gain),
		)
		return m, m.waitParams()
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	p := m.sim.Params()
	switch key {
	case "q", "ctrl+c", "esc":
		m.driver.Stop()
		return tea.Quit
	case " ":
		m.err = nil
		m.driver.Toggle()
	case "r":
		m.err = nil
		m.history = m.history[:0]
		m.driver.Reset()
	case "+", "=":
		m.sim.SetIterations(p.Iterations + 1)
	case "-", "_":
		m.sim.SetIterations(p.Iterations - 1)
	case "]":
		m.sim.SetForce(p.Force * ForceStep)
	case "[":
		m.sim.SetForce(p.Force / ForceStep)
	case "g":
		m.sim.SetGain(p.Gain * 2)
	case "G":
		m.sim.SetGain(p.Gain / 2)
	}
	return nil
}

func (m *Model) View() string {
	var b strings.Builder

	status := StatusRunning.Render("● " + m.driver.State().String())
	switch {
	case m.err != nil:
		status = StatusError.Render("✕ " + m.err.Error())
	case m.driver.State() == animate.Stopped:
		status = StatusStopped.Render("■ stopped")
	}
	b.WriteString(Title.Render("fieldsim · "+string(m.sim.Variant())) + "  " + status + "\n")

	cols := max(8, min(m.width-2, 120))
	rows := max(4, m.height-8)
	b.WriteString(Panel.Render(Picture(m.screen.Screen(), cols, rows)) + "\n")

	p := m.sim.Params()
	w, h := m.sim.Size()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		metric("frame", fmt.Sprintf("%d", m.sim.Frame())),
		metric("fps", fmt.Sprintf("%.1f", m.meter.FPS())),
		metric("grid", fmt.Sprintf("%dx%d", w, h)),
		metric("iter", fmt.Sprintf("%d", p.Iterations)),
		metric("c", fmt.Sprintf("%.4g", p.Force)),
		metric("gain", fmt.Sprintf("%.3g", p.Gain)),
	) + "\n")
	b.WriteString(MetricLabel.Render("energy ") + Sparkline(m.history, max(10, cols-8)) + "\n")
	b.WriteString(KeyHint.Render("space run/stop · r reset · +/- iterations · [/] force · g/G gain · q quit"))
	return b.String()
}

func metric(label, value string) string {
	return MetricLabel.Render(label+" ") + MetricValue.Render(value) + "   "
}

// Run blocks until the user quits or ctx ends.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
