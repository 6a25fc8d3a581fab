// Package setupui implements the Bubble Tea credential form for gert setup.
package setupui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/gert/internal/config"
	"github.com/sprite-ai/gert/internal/ident"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Width(12)
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpBarStyle  = lipgloss.NewStyle().Faint(true)
)

const (
	fieldHost = iota
	fieldUsername
	fieldPassword
	fieldAITool
	fieldCount
)

var labels = [fieldCount]string{"Host", "Username", "Password", "AI tool"}

// Model is the setup form.
type Model struct {
	inputs  [fieldCount]textinput.Model
	focus   int
	errMsg  string
	done    bool
	aborted bool
}

// New builds the form, pre-filled from existing credentials when present.
func New(existing *config.Credentials) Model {
	var m Model
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		m.inputs[i] = in
	}
	m.inputs[fieldHost].Placeholder = "https://gerrit.example.com"
	m.inputs[fieldUsername].Placeholder = "HTTP username"
	m.inputs[fieldPassword].Placeholder = "HTTP password or token"
	m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	m.inputs[fieldPassword].EchoCharacter = '•'
	m.inputs[fieldAITool].Placeholder = "claude (blank to auto-detect)"

	if existing != nil {
		m.inputs[fieldHost].SetValue(existing.Host)
		m.inputs[fieldUsername].SetValue(existing.Username)
		m.inputs[fieldAITool].SetValue(existing.AITool)
	}
	m.inputs[fieldHost].Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit

		case tea.KeyShiftTab, tea.KeyUp:
			m.setFocus(m.focus - 1)
			return m, nil

		case tea.KeyTab, tea.KeyDown:
			m.setFocus(m.focus + 1)
			return m, nil

		case tea.KeyEnter:
			if m.focus < fieldCount-1 {
				m.setFocus(m.focus + 1)
				return m, nil
			}
			if msg := m.validate(); msg != "" {
				m.errMsg = msg
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) {
	if i < 0 {
		i = fieldCount - 1
	}
	if i >= fieldCount {
		i = 0
	}
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
	m.errMsg = ""
}

func (m *Model) validate() string {
	if strings.TrimSpace(m.inputs[fieldHost].Value()) == "" {
		return "host is required"
	}
	if strings.TrimSpace(m.inputs[fieldUsername].Value()) == "" {
		return "username is required"
	}
	if m.inputs[fieldPassword].Value() == "" {
		return "password is required"
	}
	return ""
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gert setup"))
	b.WriteString("\n\n")

	for i, in := range m.inputs {
		label := labelStyle.Render(labels[i])
		if i == m.focus {
			label = focusedStyle.Render("▸ ") + label
		} else {
			label = "  " + label
		}
		fmt.Fprintf(&b, "%s %s\n", label, in.View())
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.errMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(helpBarStyle.Render("tab/↑↓ move · enter accept · esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Credentials converts the form state into the credentials to persist.
func (m Model) Credentials() *config.Credentials {
	tool := strings.TrimSpace(m.inputs[fieldAITool].Value())
	return &config.Credentials{
		Host:         ident.NormalizeHost(strings.TrimSpace(m.inputs[fieldHost].Value())),
		Username:     strings.TrimSpace(m.inputs[fieldUsername].Value()),
		Password:     m.inputs[fieldPassword].Value(),
		AITool:       tool,
		AIAutoDetect: tool == "",
	}
}

// Run drives the form to completion. A nil result with a nil error means
// the user cancelled.
func Run(existing *config.Credentials) (*config.Credentials, error) {
	p := tea.NewProgram(New(existing))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok || m.aborted || !m.done {
		return nil, nil
	}
	return m.Credentials(), nil
}
