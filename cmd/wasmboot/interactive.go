package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/bootstrap"
	"github.com/wippyai/wasm-loader/config"
	"github.com/wippyai/wasm-loader/worker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxEvents = 8

type progressMsg float64

type eventMsg string

type doneMsg struct {
	app    *bootstrap.App
	err    error
	assets int
}

type bootModel struct {
	err      error
	app      *bootstrap.App
	target   string
	strategy string
	events   []string
	spinner  spinner.Model
	bar      progress.Model
	percent  float64
	assets   int
	done     bool
}

func newBootModel(cfg config.Config) *bootModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := &bootModel{
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		target:   cfg.Engine,
		strategy: "direct",
	}
	if cfg.ServiceWorker != nil {
		m.target = cfg.Entrypoint
		m.strategy = "worker " + cfg.ServiceWorker.ScriptURL()
	}
	return m
}

func (m *bootModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *bootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.percent = float64(msg)

	case eventMsg:
		m.events = append(m.events, string(msg))
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}

	case doneMsg:
		m.done = true
		m.app = msg.app
		m.err = msg.err
		m.assets = msg.assets
		return m, tea.Quit
	}

	return m, nil
}

func (m *bootModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Boot"))
	b.WriteString(" ")
	b.WriteString(m.target)
	b.WriteString(helpStyle.Render(" (" + m.strategy + ")"))
	b.WriteString("\n\n")

	if m.app == nil && m.err == nil {
		b.WriteString(m.spinner.View())
		b.WriteString(" loading\n")
	}
	if m.strategy == "direct" {
		b.WriteString(m.bar.ViewAs(m.percent))
		b.WriteString("\n")
	}

	if len(m.events) > 0 {
		b.WriteString("\n")
		for _, e := range m.events {
			b.WriteString(eventStyle.Render("• " + e))
			b.WriteString("\n")
		}
	}

	switch {
	case m.err != nil:
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.app != nil:
		b.WriteString("\n")
		b.WriteString(resultStyle.Render(fmt.Sprintf("Loaded %d modules, %d assets", len(m.app.Modules), m.assets)))
		b.WriteString("\n")
	default:
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q quit"))
		b.WriteString("\n")
	}

	return b.String()
}

func runInteractive(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBootModel(cfg), tea.WithContext(ctx))
	send := func(event string) { p.Send(eventMsg(event)) }

	s, err := newSession(ctx, cfg, cfg.EngineConfig(), logger, send)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	s.loader.Coordinator().Subscribe(worker.ObserverFunc(func(t worker.Transition) {
		send(fmt.Sprintf("%s: %s → %s", t.Script, t.From, t.To))
	}))

	go func() {
		app, err := s.loader.LoadEntrypoint(ctx, bootstrap.Options{
			OnProgress: func(v float64) { p.Send(progressMsg(v)) },
			OnError:    func(error) {},
		})
		if err == nil && s.workers != nil {
			select {
			case <-s.ready:
			case <-ctx.Done():
			}
		}
		p.Send(doneMsg{app: app, err: err, assets: s.loader.Assets().Len()})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(*bootModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
