package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/telemetry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type outputModel struct {
	output telemetry.Frame
	valid  bool
}

func (m outputModel) Update(msg tea.Msg, mm *uiModel) (outputModel, tea.Cmd) {
	if mm.frameValid {
		m.valid = true
		m.output = mm.frame
	}
	return m, nil
}

func vehicleRow(v telemetry.VehicleFrame) string {
	mode := "manual"
	if v.Autopilot {
		mode = "auto"
	}
	if v.Escaping {
		mode += "/escape"
	}
	front := "-"
	if v.FrontDist >= 0 {
		front = fmt.Sprintf("%.1f", v.FrontDist)
	}
	return fmt.Sprintf("%-8s %-12s %7.1f %7.2f %6.2f %6s %5d %4d %8.1f %6.2f",
		v.Name,
		mode,
		v.Speed*settings.MS_TO_KPH,
		v.YawRate,
		v.Throttle,
		front,
		v.Laps,
		v.Respawns,
		v.Progress,
		v.CrossTrack,
	)
}

func renderFrame(f telemetry.Frame) string {
	b := strings.Builder{}
	status := fmt.Sprintf("tick: %d\ntime: %.2fs\nrate: %.1fHz", f.Tick, f.Time, f.Hz)
	b.WriteString(status)
	if f.Paused {
		b.WriteString(" " + pausedStyle.Render("paused"))
	}
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-12s %7s %7s %6s %6s %5s %4s %8s %6s",
		"name", "mode", "km/h", "yaw/s", "thr", "front", "laps", "resp", "progress", "xtrack")))
	for _, v := range f.Vehicles {
		b.WriteString("\n" + vehicleRow(v))
	}
	return b.String()
}

func (m outputModel) View() string {
	if !m.valid {
		return docStyle.Render("waiting for telemetry from trackd\n\n(esc to return)") + "\n"
	}
	return docStyle.Render(renderFrame(m.output)+"\n\n(esc to return)") + "\n"
}
