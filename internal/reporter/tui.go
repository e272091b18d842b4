package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"offerpilot/pkg/model"
)

var (
	colorBrand = lipgloss.Color("#056DAE")
	colorOK    = lipgloss.Color("#90EE90")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Padding(0, 2).
			Width(44)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	statsStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

var stopKeys = key.NewBinding(
	key.WithKeys("s", "q", "ctrl+c"),
	key.WithHelp("s", "stop script"),
)

type snapshotMsg model.Snapshot

type tickMsg time.Time

// Model 进度面板的 bubbletea 模型
type Model struct {
	snap       model.Snapshot
	receivedAt time.Time
	elapsed    time.Duration
	bar        progress.Model
	cancel     context.CancelFunc
	stopping   bool
	done       bool
	now        func() time.Time
}

// NewModel 创建面板模型，cancel 在按下停止键时调用
func NewModel(cancel context.CancelFunc) Model {
	return Model{
		snap:   model.Snapshot{Phase: model.PhaseIdle},
		bar:    progress.New(progress.WithSolidFill(string(colorBrand)), progress.WithWidth(40)),
		cancel: cancel,
		now:    time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = model.Snapshot(msg)
		m.receivedAt = m.now()
		m.elapsed = m.snap.Elapsed
		if m.snap.Phase == model.PhaseStopped {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		// 只刷新耗时，计数只随快照变化
		if m.running() {
			m.elapsed = m.snap.Elapsed + m.now().Sub(m.receivedAt)
		}
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, stopKeys) && !m.stopping {
			m.stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) running() bool {
	return !m.snap.StartedAt.IsZero() && m.snap.Phase != model.PhaseStopped
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n\n")

	s := m.snap
	switch {
	case s.Phase == model.PhaseIdle || s.Phase == model.PhaseScanning:
		b.WriteString(Headline(s))
		b.WriteString("\n")
	case Complete(s):
		b.WriteString(successStyle.Render("✅ " + Headline(s)))
		b.WriteString("\n")
	case s.Phase == model.PhaseStopped:
		b.WriteString(statsStyle.Render(Headline(s)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d / %d settled\n", s.Completed, s.Total)
	default:
		b.WriteString(statsStyle.Render(Headline(s)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "Elapsed: %s\n", FormatElapsed(m.elapsed))
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%d remaining...", s.Remaining())))
	}

	if s.Phase == model.PhaseProcessing || s.Phase == model.PhaseStopped {
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(Ratio(s)))
		b.WriteString("\n")
	}

	if !m.done {
		b.WriteString("\n")
		if m.stopping {
			b.WriteString(dimStyle.Render("stopping after the current offer..."))
		} else {
			b.WriteString(dimStyle.Render("s / q  " + stopKeys.Help().Desc))
		}
	}
	return panelStyle.Render(b.String()) + "\n"
}

// TUI 在终端上运行进度面板，实现 enroll.Reporter
type TUI struct {
	p *tea.Program
}

// NewTUI 创建终端面板，opts 透传给 tea.NewProgram
func NewTUI(cancel context.CancelFunc, opts ...tea.ProgramOption) *TUI {
	return &TUI{p: tea.NewProgram(NewModel(cancel), opts...)}
}

// Update 把快照投递到 UI 协程
func (t *TUI) Update(s model.Snapshot) {
	t.p.Send(snapshotMsg(s))
}

// Run 阻塞直到收到停止快照或程序被关闭
func (t *TUI) Run() error {
	_, err := t.p.Run()
	return err
}

// Quit 强制结束面板
func (t *TUI) Quit() {
	t.p.Quit()
}
