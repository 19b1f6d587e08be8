package teleop

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mdouchement/lidarbot"
)

const speedStep = 0.05

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

type (
	tickMsg   time.Time
	statusMsg lidarbot.Status
	errMsg    error
)

type model struct {
	client *http.Client
	every  time.Duration
	speed  float64
	axes   lidarbot.Axes
	status lidarbot.Status
	err    error
}

func newTUI(client *http.Client, every time.Duration, speed float64) *model {
	return &model{
		client: client,
		every:  every,
		speed:  speed,
	}
}

func (m *model) Init() tea.Cmd {
	return m.tick()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "z", "w":
			m.axes = lidarbot.Axes{Move: m.speed}
		case "down", "s":
			m.axes = lidarbot.Axes{Move: -m.speed}
		case "right", "d":
			m.axes = lidarbot.Axes{Rotate: m.speed}
		case "left", "a":
			m.axes = lidarbot.Axes{Rotate: -m.speed}
		case " ", "space":
			m.axes = lidarbot.Axes{}
		case "+":
			m.setSpeed(m.speed + speedStep)
		case "-":
			m.setSpeed(m.speed - speedStep)
		}
		return m, m.push()
	case tickMsg:
		return m, tea.Batch(m.push(), m.tick())
	case statusMsg:
		m.status = lidarbot.Status(msg)
		m.err = nil
	case errMsg:
		m.err = msg
	}
	return m, nil
}

func (m *model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("lidarbot teleop"))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  speed %.2f", m.speed)))
	sb.WriteString("\n\n")

	body := fmt.Sprintf("axes     move=%+.2f rotate=%+.2f\noutputs  left=%+.2f right=%+.2f\nlidar    %d RPM",
		m.axes.Move, m.axes.Rotate, m.status.Left, m.status.Right, m.status.RPM)
	if m.err != nil {
		body += "\n" + errorStyle.Render(m.err.Error())
	}
	sb.WriteString(boxStyle.Render(body))
	sb.WriteString("\n")

	sb.WriteString(statusStyle.Render("arrows: drive  space: stop  +/-: speed  q: quit"))
	return sb.String()
}

func (m *model) setSpeed(v float64) {
	v = min(max(v, speedStep), 1)
	scale := v / m.speed
	m.speed = v
	m.axes.Move *= scale
	m.axes.Rotate *= scale
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(m.every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) push() tea.Cmd {
	axes := m.axes
	return func() tea.Msg {
		status, err := m.post(axes.Move, axes.Rotate)
		if err != nil {
			return errMsg(err)
		}
		return statusMsg(status)
	}
}

func (m *model) send(move, rotate float64) error {
	_, err := m.post(move, rotate)
	return err
}

func (m *model) post(move, rotate float64) (lidarbot.Status, error) {
	q := url.Values{}
	q.Set("move", strconv.FormatFloat(move, 'f', 3, 64))
	q.Set("rotate", strconv.FormatFloat(rotate, 'f', 3, 64))

	resp, err := m.client.Post("http://unix/joystick?"+q.Encode(), "", nil)
	if err != nil {
		return lidarbot.Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return lidarbot.Status{}, fmt.Errorf("joystick: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var status lidarbot.Status
	err = json.NewDecoder(resp.Body).Decode(&status)
	return status, err
}
