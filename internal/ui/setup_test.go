package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lampFields() []Field {
	return []Field{
		{Name: "Board", Options: []Option{{Label: "sim"}, {Label: "periph"}}},
		{Name: "LED driver", Options: []Option{{Label: "spi"}, {Label: "nrzled"}}, Initial: 1, Locked: true},
		{Name: "Microphone", Options: []Option{
			{Label: "simulated"},
			{Label: "[0] usb", Detail: "48000 Hz · 2 in · 5.0 ms latency"},
			{Label: "[1] built-in"},
		}},
	}
}

func press(m *setupModel, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

func TestSetupSkipsLockedFields(t *testing.T) {
	m := newSetupModel(lampFields())
	assert.Equal(t, 0, m.focus)

	press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.focus, "driver is locked")

	press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.focus, "wraps back to the board")

	press(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 2, m.focus)
}

func TestSetupCyclesValues(t *testing.T) {
	m := newSetupModel(lampFields())

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	press(m, tea.KeyMsg{Type: tea.KeyTab})
	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.NoError(t, m.err)
	assert.Equal(t, []int{1, 1, 2}, m.choices)
}

func TestSetupAbort(t *testing.T) {
	m := newSetupModel(lampFields())
	cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.ErrorIs(t, m.err, ErrSelectionAborted)
}

func TestSetupAllLockedNeedsNoTerminal(t *testing.T) {
	fields := lampFields()
	fields[0].Locked = true
	fields[0].Initial = 1
	fields[2].Locked = true
	fields[2].Initial = 7

	choices, err := RunSetup(fields)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2}, choices, "initial choices are clamped")
	assert.Equal(t, choices, InitialChoices(fields))
}

func TestSetupView(t *testing.T) {
	m := newSetupModel(lampFields())
	press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyRight})

	view := m.View()
	assert.Contains(t, view, "Clap Lamp setup")
	assert.Contains(t, view, "nrzled")
	assert.Contains(t, view, "(flag)")
	assert.Contains(t, view, "[0] usb")
	assert.Contains(t, view, "48000 Hz")
}
