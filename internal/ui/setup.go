package ui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"golang.org/x/term"

	"github.com/cybre/clap-lamp/internal/utils"
)

var (
	ErrSelectionAborted = eris.New("selection aborted")
	ErrNoInteractiveTTY = eris.New("no interactive terminal available")
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))

	fieldNameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Width(12)
	fieldValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	focusValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("219")).Bold(true)
	lockedValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	arrowStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	detailStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true).PaddingLeft(14)
	keyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	keyTextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Option is one value a setup field can take.
type Option struct {
	Label  string
	Detail string
}

// Field is one line of the setup form. A Locked field was already decided on
// the command line and is shown for reference only.
type Field struct {
	Name    string
	Options []Option
	Initial int
	Locked  bool
}

// RunSetup shows the lamp setup form and returns the chosen option index of
// every field, in field order. When every field is locked it returns the
// initial choices without touching the terminal.
func RunSetup(fields []Field) ([]int, error) {
	m := newSetupModel(fields)
	if m.focus < 0 {
		return m.choices, nil
	}

	if !IsInteractiveTerminal() {
		return nil, ErrNoInteractiveTTY
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, eris.Wrap(err, "run setup")
	}

	result := final.(*setupModel)
	if result.err != nil {
		return nil, result.err
	}
	return result.choices, nil
}

// InitialChoices returns the choices RunSetup starts from, for callers that
// cannot show the form.
func InitialChoices(fields []Field) []int {
	return newSetupModel(fields).choices
}

type setupModel struct {
	fields  []Field
	choices []int
	// focus is the index of the focused field, or -1 when none is editable.
	focus int
	err   error
}

func newSetupModel(fields []Field) *setupModel {
	m := &setupModel{
		fields:  fields,
		choices: make([]int, len(fields)),
		focus:   -1,
	}
	for i, f := range fields {
		m.choices[i] = utils.ClampIndex(f.Initial, len(f.Options))
		if m.focus < 0 && m.editable(i) {
			m.focus = i
		}
	}
	return m
}

func (m *setupModel) editable(i int) bool {
	return !m.fields[i].Locked && len(m.fields[i].Options) > 1
}

// moveFocus steps to the next editable field in dir, wrapping around.
func (m *setupModel) moveFocus(dir int) {
	for range m.fields {
		m.focus = utils.WrapIndex(m.focus+dir, len(m.fields))
		if m.editable(m.focus) {
			return
		}
	}
}

func (m *setupModel) cycle(dir int) {
	n := len(m.fields[m.focus].Options)
	m.choices[m.focus] = utils.WrapIndex(m.choices[m.focus]+dir, n)
}

func (m *setupModel) Init() tea.Cmd {
	return nil
}

func (m *setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.err = ErrSelectionAborted
		return m, tea.Quit
	case "enter":
		return m, tea.Quit
	}

	if m.focus < 0 {
		return m, nil
	}
	switch key.String() {
	case "up", "k", "shift+tab":
		m.moveFocus(-1)
	case "down", "j", "tab":
		m.moveFocus(1)
	case "left", "h":
		m.cycle(-1)
	case "right", "l", " ":
		m.cycle(1)
	}
	return m, nil
}

func (m *setupModel) View() string {
	rows := []string{"", titleStyle.Render("Clap Lamp setup"), ""}
	for i := range m.fields {
		rows = append(rows, m.renderField(i))
	}

	if m.focus >= 0 {
		f := m.fields[m.focus]
		if d := f.Options[m.choices[m.focus]].Detail; d != "" {
			rows = append(rows, "", detailStyle.Render(d))
		}
	}

	rows = append(rows, "", renderKeys(m.focus >= 0), "")
	return strings.Join(rows, "\n")
}

func (m *setupModel) renderField(i int) string {
	f := m.fields[i]
	label := "none"
	if len(f.Options) > 0 {
		label = f.Options[m.choices[i]].Label
	}

	var value string
	switch {
	case i == m.focus:
		value = arrowStyle.Render("‹ ") + focusValueStyle.Render(label) + arrowStyle.Render(" ›")
	case !m.editable(i):
		value = lockedValueStyle.Render(label)
		if f.Locked {
			value += lockedValueStyle.Render("  (flag)")
		}
	default:
		value = fieldValueStyle.Render("  " + label)
	}
	return fieldNameStyle.Render(f.Name) + value
}

func renderKeys(editable bool) string {
	pairs := [][2]string{{"enter", "start"}, {"esc", "cancel"}}
	if editable {
		pairs = append([][2]string{{"↑/↓", "field"}, {"←/→", "change"}}, pairs...)
	}

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s %s", keyStyle.Render(p[0]), keyTextStyle.Render(p[1]))
	}
	return strings.Join(parts, keyTextStyle.Render(" · "))
}

// IsInteractiveTerminal reports whether both stdin and stdout are a TTY.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
