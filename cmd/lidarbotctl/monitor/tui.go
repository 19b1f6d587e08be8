package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mdouchement/lidarbot"
)

const (
	seriesLeft  = "left"
	seriesRight = "right"

	tableHeight  = 12
	legendHeight = 1
	borderSize   = 2
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	seriesColors = map[string]string{
		seriesLeft:  "#00afff",
		seriesRight: "#ff8700",
	}
)

type model struct {
	table  table.Model
	chart  *streamlinechart.Model
	status lidarbot.Status
	width  int
	height int
}

func newTUI() *model {
	columns := []table.Column{
		{Title: "Field", Width: 16},
		{Title: "Value", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(tableHeight),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		Foreground(lipgloss.Color("#00afff")).
		BorderForeground(lipgloss.Color("#00afff")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Bold(false)
	t.SetStyles(s)

	chart := streamlinechart.New(80, 10,
		streamlinechart.WithYRange(-100, 100),
	)
	for name, color := range seriesColors {
		chart.SetDataSetStyles(name, runes.ThinLineStyle, lipgloss.NewStyle().Foreground(lipgloss.Color(color)))
	}

	return &model{
		table: t,
		chart: &chart,
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.chart.Resize(m.chartSize())
	case lidarbot.Status:
		m.update(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("lidarbot"))
	sb.WriteString(" - " + m.status.Variant)
	if !m.status.UpdatedAt.IsZero() {
		sb.WriteString(statusStyle.Render("  " + m.status.UpdatedAt.Format(time.TimeOnly)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.table.View())
	sb.WriteString("\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	var items []string
	for _, name := range []string{seriesLeft, seriesRight} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, style.Render("━━")+" "+name+" output (%)")
	}
	items = append(items, statusStyle.Render("Press 'q' to quit"))
	sb.WriteString(strings.Join(items, "  "))

	return sb.String()
}

func (m *model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 10
	}

	width = max(m.width-borderSize-2, 40)
	height = max(m.height-tableHeight-legendHeight-borderSize-4, 5)
	return width, height
}

func (m *model) update(status lidarbot.Status) {
	m.status = status

	mode := "manual"
	if status.Enabled {
		mode = "autonomous"
	}

	lastError := "-"
	if status.LastError != 0 {
		lastError = errorStyle.Render(fmt.Sprintf("%d %s (%s)", status.LastError, status.LastError.Error(), status.LastError.Severity()))
	}

	rows := []table.Row{
		{"Mode", mode},
		{"Move", fmt.Sprintf("%d %s", status.Move, status.Move)},
		{"Reported move", fmt.Sprintf("%d %s", status.Reported, status.Reported)},
		{"Lines", fmt.Sprintf("MOVE=%s TURN=%s FORWARD_CW=%s FIRE=%s", level(status.Lines.Move), level(status.Lines.Turn), level(status.Lines.Direction), level(status.Lines.Fire))},
		{"Speed", fmt.Sprintf("%.2f", status.Speed)},
		{"Axes", fmt.Sprintf("move=%+.2f rotate=%+.2f", status.Axes.Move, status.Axes.Rotate)},
		{"Outputs", fmt.Sprintf("left=%+.2f right=%+.2f", status.Left, status.Right)},
		{"Flashlight", fmt.Sprintf("%t", status.Flashlight)},
		{"Lidar", fmt.Sprintf("%d RPM", status.RPM)},
		{"Last error", lastError},
	}
	m.table.SetRows(rows)

	m.chart.PushDataSet(seriesLeft, status.Left*100)
	m.chart.PushDataSet(seriesRight, status.Right*100)
	m.chart.DrawAll()
}

func level(high bool) string {
	if high {
		return "1"
	}
	return "0"
}
