package ui

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/crazy3lf/colorconv"

	"github.com/cybre/clap-lamp/internal/clap"
	"github.com/cybre/clap-lamp/internal/color"
	"github.com/cybre/clap-lamp/internal/lamp"
	"github.com/cybre/clap-lamp/internal/settings"
	"github.com/cybre/clap-lamp/internal/utils"
)

// Controls receives the simulator's key presses.
type Controls interface {
	Tap()
	TurnBrightness(steps int)
	TurnHue(steps int)
	Clap()
}

// Panel shows the live lamp state in the terminal.
type Panel struct {
	program   *tea.Program
	mu        sync.Mutex
	lastSend  time.Time
	throttle  time.Duration
	closeOnce sync.Once
}

type statusMsg struct {
	status     lamp.Status
	receivedAt time.Time
}

type panelModel struct {
	status      lamp.Status
	lastUpdated time.Time
	ready       bool
	width       int
	height      int
	controls    Controls
	onExit      func()
	exitOnce    sync.Once
}

var (
	panelContainerStyle = lipgloss.NewStyle().Padding(0, 2)
	panelTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelLabelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panelValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	panelOnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("221")).Bold(true)
	panelOffStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	panelClapStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("197")).Bold(true)
	panelWaitingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	panelHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

const (
	panelBarWidth = 32
	swatchBlocks  = 18
	renderLatency = 45 * time.Millisecond
)

// NewPanel starts the panel on the alternate screen. onExit runs once when
// the user quits; controls, when not nil, receive simulator keys.
func NewPanel(onExit func(), controls Controls) *Panel {
	model := &panelModel{onExit: onExit, controls: controls}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())

	p := &Panel{
		program:  program,
		throttle: renderLatency,
	}

	go program.Run()

	return p
}

// Update forwards a status, dropping it if the last one was sent less than
// the render latency ago.
func (p *Panel) Update(status lamp.Status) {
	p.mu.Lock()
	if time.Since(p.lastSend) < p.throttle {
		p.mu.Unlock()
		return
	}
	p.lastSend = time.Now()
	p.mu.Unlock()

	p.program.Send(statusMsg{
		status:     status,
		receivedAt: time.Now(),
	})
}

func (p *Panel) Close() {
	p.closeOnce.Do(func() {
		p.program.Quit()
	})
}

func (m *panelModel) Init() tea.Cmd {
	return nil
}

func (m *panelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case statusMsg:
		m.status = msg.status
		m.lastUpdated = msg.receivedAt
		m.ready = true
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.invokeExit()
			return m, tea.Quit
		}
		m.handleKey(msg.String())
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *panelModel) handleKey(key string) {
	if m.controls == nil {
		return
	}
	switch key {
	case " ", "enter":
		m.controls.Tap()
	case "right", "l":
		m.controls.TurnBrightness(1)
	case "left", "h":
		m.controls.TurnBrightness(-1)
	case "up", "k":
		m.controls.TurnHue(1)
	case "down", "j":
		m.controls.TurnHue(-1)
	case "c":
		m.controls.Clap()
	}
}

func (m *panelModel) View() string {
	var body string
	if !m.ready {
		header := titleStyle.Render("Clap Lamp")
		waiting := panelWaitingStyle.Render("Calibrating microphone…")
		body = lipgloss.JoinVertical(lipgloss.Left, header, "", waiting)
	} else {
		body = renderPanelView(m.status, m.lastUpdated, m.controls != nil)
	}
	return panelContainerStyle.Render(body)
}

func renderPanelView(status lamp.Status, updatedAt time.Time, simulated bool) string {
	hint := "Press q / esc / ctrl+c to quit"
	if simulated {
		hint = "space button · ←/→ brightness · ↑/↓ hue · c clap · q quit"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		renderHeader(status, updatedAt),
		renderMetrics(status),
		"",
		renderColorSwatch(status.Color),
		"",
		renderBars(status),
		"",
		renderStorage(status),
		"",
		panelHintStyle.Render(hint),
	)
}

func renderHeader(status lamp.Status, updatedAt time.Time) string {
	title := titleStyle
	if status.Config.On && status.Color != color.Off {
		title = title.Foreground(lipgloss.Color(status.Color.Hex()))
	}
	timestamp := panelTimestampStyle.Render(updatedAt.Format("15:04:05.000"))
	tick := panelTimestampStyle.Render(fmt.Sprintf("tick %d", status.Tick))

	return lipgloss.JoinHorizontal(lipgloss.Left, title.Render("Clap Lamp"), "  ", timestamp, "  ", tick)
}

func renderMetrics(status lamp.Status) string {
	power := panelOffStyle.Render("off")
	if status.Config.On {
		power = panelOnStyle.Render("on")
	}

	top := lipgloss.JoinHorizontal(lipgloss.Left,
		renderMetric("Power", power),
		"   ",
		renderMetric("Brightness", panelValueStyle.Render(fmt.Sprintf("%2d/%d", status.Config.Brightness, settings.MaxBrightness))),
		"   ",
		renderMetric("Hue", panelValueStyle.Render(fmt.Sprintf("%3d/%d (%3.0f°)", status.Config.Hue, settings.HueSteps-1, hueDegrees(status.Config.Hue)))),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Left,
		renderClapMetric(status),
		"   ",
		renderMetric("Claps", panelValueStyle.Render(fmt.Sprintf("%d", status.Claps))),
	)

	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func renderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		panelLabelStyle.Render(label+":"),
		" ",
		value,
	)
}

func renderClapMetric(status lamp.Status) string {
	state := panelOffStyle.Render(status.ClapState.String())
	if status.ClapState != clap.NoClap {
		state = panelClapStyle.Render(status.ClapState.String())
	}
	return renderMetric("Clap", state)
}

// renderColorSwatch shows the colour actually sent to the LEDs, with its HSL
// read back from the RGB values.
func renderColorSwatch(c color.RGB) string {
	block := lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ")
	swatch := strings.Repeat(block, swatchBlocks)

	h, s, l := colorconv.RGBToHSL(c.R, c.G, c.B)
	info := panelValueStyle.Render(fmt.Sprintf("%s  H:%3.0f° S:%3.0f%% L:%3.0f%%",
		c.Hex(),
		h,
		utils.Clamp(s*100, 0.0, 100.0),
		utils.Clamp(l*100, 0.0, 100.0),
	))

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		subtitleStyle.Render("LEDs"),
		"  ",
		swatch,
		"  ",
		info,
	)
}

func renderBars(status lamp.Status) string {
	deviation := utils.Abs(int(status.MicLevel) - int(status.MicAverage))
	lines := []string{
		renderBar("Mic", float64(status.MicLevel)/1023, panelThemes["Mic"]),
		renderBar("Average", float64(status.MicAverage)/1023, panelThemes["Average"]),
		renderBar("Deviation", float64(deviation)/512, panelThemes["Deviation"]),
		renderBar("Brightness", float64(status.Config.Brightness)/settings.MaxBrightness, panelThemes["Brightness"]),
	}
	return strings.Join(lines, "\n")
}

func renderStorage(status lamp.Status) string {
	state := panelOffStyle.Render("saved")
	if status.Dirty {
		state = panelOnStyle.Render("pending")
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		renderMetric("EEPROM", state),
		"   ",
		renderMetric("Writes", panelValueStyle.Render(fmt.Sprintf("%d", status.Writes))),
		"   ",
		renderMetric("Refreshes", panelValueStyle.Render(fmt.Sprintf("%d", status.Refreshes))),
	)
}

func renderBar(label string, value float64, theme barTheme) string {
	theme = normalizeBarTheme(theme)

	clamped := utils.Clamp(value, 0.0, 1.0)
	filled := int(math.Round(clamped * panelBarWidth))
	if clamped > 0 && filled == 0 {
		filled = 1
	}
	if filled > panelBarWidth {
		filled = panelBarWidth
	}

	builder := strings.Builder{}
	builder.Grow(128)
	builder.WriteString(theme.LabelStyle.Render(fmt.Sprintf("%-12s", label)))
	builder.WriteString(" [")

	if filled > 0 {
		steps := filled - 1
		if steps <= 0 {
			steps = 1
		}
		for i := 0; i < filled; i++ {
			progress := float64(i) / float64(steps)
			hue := theme.HueStart + (theme.HueEnd-theme.HueStart)*progress
			value := utils.Clamp(theme.ValueBase+theme.ValueSpan*progress, 0.0, 1.0)
			c := lipgloss.Color(hexColorFromHSV(hue, theme.Saturation, value))
			builder.WriteString(lipgloss.NewStyle().
				Foreground(c).
				Render(theme.FilledChar))
		}
	}

	empty := panelBarWidth - filled
	if empty > 0 {
		emptyBlock := theme.EmptyStyle.Render(theme.EmptyChar)
		for range empty {
			builder.WriteString(emptyBlock)
		}
	}

	builder.WriteString("] ")
	builder.WriteString(theme.ValueStyle.Render(fmt.Sprintf("%3.0f%%", clamped*100)))

	return builder.String()
}

type barTheme struct {
	LabelStyle lipgloss.Style
	ValueStyle lipgloss.Style
	EmptyStyle lipgloss.Style

	HueStart   float64
	HueEnd     float64
	Saturation float64
	ValueBase  float64
	ValueSpan  float64

	FilledChar string
	EmptyChar  string
}

var defaultBarTheme = barTheme{
	LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
	HueStart:   210,
	HueEnd:     210,
	Saturation: 0.8,
	ValueBase:  0.35,
	ValueSpan:  0.45,
	FilledChar: "█",
	EmptyChar:  "░",
}

var panelThemes = map[string]barTheme{
	"Mic": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		HueStart:   190,
		HueEnd:     140,
		Saturation: 0.85,
		ValueBase:  0.35,
		ValueSpan:  0.55,
	},
	"Average": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("153")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		HueStart:   180,
		HueEnd:     200,
		Saturation: 0.78,
	},
	"Deviation": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("237")),
		HueStart:   330,
		HueEnd:     360,
		Saturation: 0.9,
		ValueBase:  0.4,
		ValueSpan:  0.55,
	},
	"Brightness": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		HueStart:   40,
		HueEnd:     60,
		Saturation: 0.6,
		ValueBase:  0.3,
		ValueSpan:  0.7,
	},
}

func normalizeBarTheme(theme barTheme) barTheme {
	if theme.FilledChar == "" {
		theme.FilledChar = defaultBarTheme.FilledChar
	}
	if theme.EmptyChar == "" {
		theme.EmptyChar = defaultBarTheme.EmptyChar
	}
	if theme.Saturation <= 0 {
		theme.Saturation = defaultBarTheme.Saturation
	}
	if theme.ValueSpan <= 0 {
		theme.ValueSpan = defaultBarTheme.ValueSpan
	}
	if theme.ValueBase <= 0 {
		theme.ValueBase = defaultBarTheme.ValueBase
	}
	return theme
}

func hexColorFromHSV(h, s, v float64) string {
	s = utils.Clamp(s, 0.0, 1.0)
	v = utils.Clamp(v, 0.0, 1.0)
	r, g, b, err := colorconv.HSVToRGB(h, s, v)
	if err != nil {
		return "#FFFFFF"
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// hueDegrees maps a hue step onto the colour wheel.
func hueDegrees(hue uint8) float64 {
	return float64(hue) * 360 / settings.HueSteps
}

func (m *panelModel) invokeExit() {
	m.exitOnce.Do(func() {
		if m.onExit != nil {
			m.onExit()
		}
	})
}
