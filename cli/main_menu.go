package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/utils"
)

type mainState int

const (
	showMenu mainState = iota
	showSettings
	showTracks
	showOutput
	showDrive
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type TickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Every(50*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// CommandSender is the write side of the command queue.
type CommandSender interface {
	Send(telemetry.Command) error
}

// FrameSource is the read side of the telemetry queue.
type FrameSource interface {
	Read() (telemetry.Frame, bool)
}

type uiModel struct {
	list       list.Model
	state      mainState
	settings   settingsModel
	tracks     tracksModel
	output     outputModel
	drive      driveModel
	pub        CommandSender
	sub        FrameSource
	frame      telemetry.Frame
	frameValid bool
	frameAt    time.Time
}

type item struct {
	title, desc string
	state       mainState
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

func initialModel(pub CommandSender, sub FrameSource) uiModel {
	items := []list.Item{
		item{title: "Settings", desc: "Modify settings of an active instance of trackd", state: showSettings},
		item{title: "Tracks", desc: "Load a different track into the running scene", state: showTracks},
		item{title: "Watch", desc: "Watch the live vehicle telemetry from trackd", state: showOutput},
		item{title: "Drive", desc: "Drive a manual car with the arrow keys", state: showDrive},
	}

	listDelegate := list.NewDefaultDelegate()
	m := uiModel{
		list:     list.New(items, listDelegate, 0, 0),
		settings: getSettingsModel(),
		tracks:   getTracksModel(),
		pub:      pub,
		sub:      sub,
	}
	m.list.Title = "Trackd Actions"
	return m
}

func (m uiModel) Init() tea.Cmd {
	return tickEvery()
}

func (m *uiModel) send(cmd telemetry.Command) {
	utils.Logwe(m.pub.Send(cmd))
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && m.state == showMenu && m.list.FilterState() != list.Filtering {
			it := m.list.SelectedItem().(item)
			m.state = it.state
			return m, nil
		}
		if msg.Type == tea.KeyEsc && (m.state == showOutput || m.state == showDrive) {
			m.drive = m.drive.release(&m)
			m.state = showMenu
			return m, nil
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		m.settings, _ = m.settings.Update(msg, &m)
		m.tracks, _ = m.tracks.Update(msg, &m)
	case TickMsg:
		frame, success := m.sub.Read()
		if success {
			m.frame = frame
			m.frameValid = true
			m.frameAt = time.Time(msg)
		}
		m.output, _ = m.output.Update(msg, &m)
		if m.state == showDrive {
			m.drive, _ = m.drive.Update(msg, &m)
		}
		return m, tickEvery()
	}

	var cmd tea.Cmd
	switch m.state {
	case showSettings:
		m.settings, cmd = m.settings.Update(msg, &m)
	case showTracks:
		m.tracks, cmd = m.tracks.Update(msg, &m)
	case showOutput:
		m.output, cmd = m.output.Update(msg, &m)
	case showDrive:
		m.drive, cmd = m.drive.Update(msg, &m)
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m uiModel) View() string {
	switch m.state {
	case showSettings:
		return m.settings.View()
	case showTracks:
		return m.tracks.View()
	case showOutput:
		return m.output.View()
	case showDrive:
		return m.drive.View(&m)
	}
	return docStyle.Render(m.list.View())
}

func interactive() {
	pub, err := telemetry.NewPublisher[telemetry.Command](telemetry.IN_SERVICE)
	if err != nil {
		fmt.Printf("Could not connect to trackd: %v\n", err)
		os.Exit(1)
	}
	sub, err := telemetry.NewSubscriber[telemetry.Frame](telemetry.OUT_SERVICE, true)
	if err != nil {
		fmt.Printf("Could not connect to trackd: %v\n", err)
		os.Exit(1)
	}
	p := tea.NewProgram(initialModel(&pub, &sub), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
