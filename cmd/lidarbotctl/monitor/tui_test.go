package monitor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mdouchement/lidarbot"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate(t *testing.T) {
	m := newTUI()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Update(lidarbot.Status{
		Variant:   lidar.VariantSmoothPuppyDog,
		Enabled:   true,
		Move:      lidar.MoveTurnClockwise,
		Left:      0.25,
		Right:     -0.25,
		RPM:       300,
		LastError: lidar.ErrTooClose,
	})

	rows := m.table.Rows()
	require.Len(t, rows, 10)
	assert.Equal(t, "autonomous", rows[0][1])
	assert.Equal(t, "3 turn_clockwise", rows[1][1])
	assert.Equal(t, "300 RPM", rows[8][1])
	assert.Contains(t, rows[9][1], "obstacle too close")

	view := m.View()
	assert.Contains(t, view, lidar.VariantSmoothPuppyDog)
	assert.Contains(t, view, "left output")
}

func TestChartSize(t *testing.T) {
	m := newTUI()

	w, h := m.chartSize()
	assert.Equal(t, 80, w)
	assert.Equal(t, 10, h)

	m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	w, h = m.chartSize()
	assert.Equal(t, 40, w)
	assert.Equal(t, 5, h)
}
