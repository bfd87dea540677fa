package popup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/tomato/internal/command"
	"github.com/hammamikhairi/tomato/internal/domain"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#b5752b")).
			Foreground(lipgloss.Color("#fde68a"))

	presetStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#a1a1aa"))

	activePresetStyle = presetStyle.
				Background(lipgloss.Color("#512103")).
				Foreground(lipgloss.Color("#ffe4c4"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))
)

const customTimeHint = "Please enter a time between 1 second and 3 hours"

type inputMode int

const (
	modeNone inputMode = iota
	modeCustom
	modeCommand
)

// Messages.
type (
	stateMsg        domain.TimerState
	disconnectedMsg struct{ err error }
	resultMsg       struct {
		state domain.TimerState
		err   error
	}
)

type model struct {
	ctx    context.Context
	ctrl   Controller
	parser *command.Parser

	state     domain.TimerState
	haveState bool
	connected bool
	notice    string

	mode  inputMode
	input textinput.Model
	width int
}

func newModel(ctx context.Context, ctrl Controller, parser *command.Parser) model {
	ti := textinput.New()
	ti.PromptStyle = promptStyle
	ti.CharLimit = 32
	ti.Width = 20

	return model{ctx: ctx, ctrl: ctrl, parser: parser, input: ti}
}

func (m model) Init() tea.Cmd {
	return tea.SetWindowTitle("tomato")
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case stateMsg:
		m.state = domain.TimerState(msg)
		m.haveState = true
		m.connected = true
		if m.notice == connectionLost {
			m.notice = ""
		}
		return m, tea.SetWindowTitle(m.title())

	case disconnectedMsg:
		m.connected = false
		m.notice = connectionLost
		return m, tea.SetWindowTitle("tomato: " + connectionLost)

	case resultMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.notice = ""
		// While connected the stream is authoritative; a reply may be older
		// than a state it already delivered.
		if !m.connected {
			m.state = msg.state
			m.haveState = true
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

const connectionLost = "connection lost, reconnecting"

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case " ", "enter":
		if m.state.Running {
			return m, m.send(domain.Command{Action: domain.ActionPause})
		}
		return m, m.send(domain.Command{Action: domain.ActionStart})
	case "r":
		return m, m.send(domain.Command{Action: domain.ActionReset})
	case "1":
		return m, m.send(domain.Command{Action: domain.ActionSetType, Type: domain.TypeFocus})
	case "2":
		return m, m.send(domain.Command{Action: domain.ActionSetType, Type: domain.TypeShort})
	case "3":
		return m, m.send(domain.Command{Action: domain.ActionSetType, Type: domain.TypeLong})
	case "c":
		// Custom time only while stopped.
		if m.state.Running {
			m.notice = "pause the timer to set a custom time"
			return m, nil
		}
		return m.openInput(modeCustom, "m:ss> ", fmt.Sprintf("%d:%02d", m.state.RemainingMinutes, m.state.RemainingSeconds))
	case ":", "/":
		return m.openInput(modeCommand, ":", "")
	}
	return m, nil
}

func (m model) openInput(mode inputMode, prompt, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.notice = ""
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m model) closeInput() model {
	m.mode = modeNone
	m.input.Reset()
	m.input.Blur()
	return m
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		return m.closeInput(), nil
	case tea.KeyEnter:
		value := m.input.Value()
		mode := m.mode
		m = m.closeInput()

		cmd, err := m.parseInput(mode, value)
		if err != nil {
			m.notice = err.Error()
			if errors.Is(err, domain.ErrInvalidCustomTime) {
				m.notice = customTimeHint
			}
			return m, nil
		}
		return m, m.send(cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// parseInput turns the input line into a command. The custom time prompt
// keeps the active preset, like the timer's own display.
func (m model) parseInput(mode inputMode, value string) (domain.Command, error) {
	if mode == modeCustom {
		minutes, seconds, err := command.ParseClock(value)
		if err != nil {
			return domain.Command{}, err
		}
		return domain.Command{
			Action:  domain.ActionSetCustomTime,
			Minutes: minutes,
			Seconds: seconds,
			Type:    m.state.ActiveType,
		}, nil
	}
	return m.parser.Parse(value)
}

func (m model) send(cmd domain.Command) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		state, err := ctrl.Do(ctx, cmd)
		return resultMsg{state: state, err: err}
	}
}

// clock formats the remaining time as mm:ss.
func (m model) clock() string {
	return fmt.Sprintf("%02d:%02d", m.state.RemainingMinutes, m.state.RemainingSeconds)
}

func (m model) title() string {
	status := "paused"
	if m.state.Running {
		status = "running"
	}
	return fmt.Sprintf("%s %s (%s)", m.clock(), m.state.ActiveType, status)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(renderBanner(m.width))
	b.WriteByte('\n')

	if !m.haveState {
		if m.notice != "" {
			b.WriteString(errorStyle.Render("  " + m.notice))
		} else {
			b.WriteString(hintStyle.Render("  connecting to tomatod..."))
		}
		b.WriteByte('\n')
		return b.String()
	}

	var presets []string
	for i, t := range domain.TimerTypes {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == m.state.ActiveType {
			presets = append(presets, activePresetStyle.Render(label))
		} else {
			presets = append(presets, presetStyle.Render(label))
		}
	}
	b.WriteString("  " + strings.Join(presets, " ") + "\n\n")

	b.WriteString(lipgloss.NewStyle().MarginLeft(2).Render(clockStyle.Render(m.clock())))
	b.WriteString("\n\n")

	keys := "space start · r reset · c custom · : command · q quit"
	if m.state.Running {
		keys = "space pause · r reset · : command · q quit"
	}
	b.WriteString(hintStyle.Render("  " + keys))
	b.WriteByte('\n')

	if m.notice != "" {
		b.WriteString(errorStyle.Render("  " + m.notice))
		b.WriteByte('\n')
	}
	if m.mode != modeNone {
		b.WriteString("  " + m.input.View())
		b.WriteByte('\n')
	}
	return b.String()
}
