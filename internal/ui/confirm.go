package ui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Field is one labelled line of a confirmation summary.
type Field struct {
	Key   string
	Value string
}

// ConfirmModel asks a single yes/no question. Anything but an explicit yes declines.
type ConfirmModel struct {
	title     string
	fields    []Field
	answered  bool
	confirmed bool
}

func NewConfirm(title string, fields ...Field) ConfirmModel {
	return ConfirmModel{title: title, fields: fields}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch strings.ToLower(key.String()) {
	case "y", "yes":
		m.answered, m.confirmed = true, true
		return m, tea.Quit
	case "n", "q", "esc", "enter", "ctrl+c":
		m.answered, m.confirmed = true, false
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	width := 0
	for _, f := range m.fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	for _, f := range m.fields {
		b.WriteString(fmt.Sprintf("  %s  %s\n", KeyStyle.Render(fmt.Sprintf("%-*s", width, f.Key)), f.Value))
	}
	b.WriteString("\n")

	switch {
	case !m.answered:
		b.WriteString("Proceed? " + HelpStyle.Render("[y/N]") + " ")
	case m.confirmed:
		b.WriteString(SuccessStyle.Render(SymbolCheck+" confirmed") + "\n")
	default:
		b.WriteString(ErrorStyle.Render(SymbolCross+" cancelled") + "\n")
	}
	return b.String()
}

func (m ConfirmModel) Confirmed() bool {
	return m.answered && m.confirmed
}

// Confirm runs the prompt on in/out and reports whether the user said yes.
func Confirm(in io.Reader, out io.Writer, title string, fields ...Field) (bool, error) {
	p := tea.NewProgram(NewConfirm(title, fields...), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Confirmed(), nil
}
