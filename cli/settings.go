package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"pfeifer.dev/trackd/telemetry"
)

type SettingType int

const (
	String SettingType = iota
	Float
	Bool
	None
)

type settingsState int

const (
	showSettingsMenu settingsState = iota
	settingsExit
	settingsInput
	settingsAction
)

type settingsItem struct {
	title, desc string
	state       settingsState
	MessageType telemetry.CommandType
	Type        SettingType
}

func (i settingsItem) Title() string       { return i.title }
func (i settingsItem) Description() string { return i.desc }
func (i settingsItem) FilterValue() string { return i.title }

type settingsModel struct {
	list         list.Model
	state        settingsState
	textInput    textinput.Model
	selectedItem settingsItem
	prompt       string
	err          error
}

func buildCommand(it settingsItem, input string) (telemetry.Command, error) {
	cmd := telemetry.Command{Type: it.MessageType}
	input = strings.TrimSpace(input)
	switch it.Type {
	case String:
		cmd.Str = input
	case Bool:
		val, err := strconv.ParseBool(input)
		if err != nil {
			return cmd, errors.Errorf("%q is not true or false", input)
		}
		cmd.Bool = val
	case Float:
		val, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return cmd, errors.Errorf("%q is not a number", input)
		}
		cmd.Float = val
	}
	return cmd, nil
}

func (m settingsModel) Update(msg tea.Msg, mm *uiModel) (settingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && m.state == showSettingsMenu && m.list.FilterState() != list.Filtering {
			it := m.list.SelectedItem().(settingsItem)
			m.selectedItem = it
			m.state = it.state
			m.err = nil
			switch m.state {
			case settingsExit:
				m.state = showSettingsMenu
				mm.state = showMenu
			case settingsInput:
				m.prompt = m.selectedItem.Title()
				m.textInput.SetValue("")
				return m, m.textInput.Focus()
			case settingsAction:
				m.state = showSettingsMenu
				mm.send(telemetry.Command{Type: it.MessageType})
			}
			return m, nil
		}
		if m.state == settingsInput {
			switch msg.Type {
			case tea.KeyEsc:
				m.state = showSettingsMenu
				m.textInput.Blur()
				return m, nil
			case tea.KeyEnter:
				cmd, err := buildCommand(m.selectedItem, m.textInput.Value())
				if err != nil {
					m.err = err
					return m, nil
				}
				mm.send(cmd)
				m.state = showSettingsMenu
				m.textInput.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m settingsModel) View() string {
	switch m.state {
	case settingsInput:
		status := "(esc to cancel)"
		if m.err != nil {
			status = m.err.Error()
		}
		return docStyle.Render(fmt.Sprintf(
			"%s\n\n%s\n\n%s",
			m.prompt,
			m.textInput.View(),
			status,
		) + "\n")
	default:
		return docStyle.Render(m.list.View())
	}
}

func getSettingsModel() settingsModel {
	items := []list.Item{
		settingsItem{
			title:       "Autopilot Enabled",
			desc:        "When enabled cars spawned for the autopilot follow the track on their own",
			MessageType: telemetry.SetAutopilot,
			Type:        Bool,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Manual Assist",
			desc:        "How much of the path following steering is blended into manual driving, 0 to 1",
			MessageType: telemetry.SetManualAssist,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Slope Align Enabled",
			desc:        "When enabled cars tilt to match the ground under their wheels",
			MessageType: telemetry.SetSlopeAlign,
			Type:        Bool,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Set Log Level",
			desc:        "Modify how verbose logging will be for the trackd system",
			MessageType: telemetry.SetLogLevel,
			Type:        String,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Tick Rate",
			desc:        "How many simulation steps run every second",
			MessageType: telemetry.SetTickRate,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Telemetry Every",
			desc:        "Publish a telemetry frame every this many ticks",
			MessageType: telemetry.SetTelemetryEvery,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Max Speed",
			desc:        "The top speed of every car in m/s",
			MessageType: telemetry.SetMaxSpeed,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Engine Force",
			desc:        "The drive force applied at full throttle",
			MessageType: telemetry.SetEngineForce,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Friction",
			desc:        "How quickly cars coast to a stop without throttle",
			MessageType: telemetry.SetFriction,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Lookahead",
			desc:        "The base lookahead distance of the autopilot in metres",
			MessageType: telemetry.SetLookahead,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Restitution",
			desc:        "How bouncy collisions between cars are, 0 to 1",
			MessageType: telemetry.SetRestitution,
			Type:        Float,
			state:       settingsInput,
		},
		settingsItem{
			title:       "Load Default Settings",
			desc:        "Reset every setting to its default value",
			MessageType: telemetry.LoadDefaultSettings,
			Type:        None,
			state:       settingsAction,
		},
		settingsItem{
			title:       "Load Recommended Settings",
			desc:        "Switch to the recommended settings for interactive driving",
			MessageType: telemetry.LoadRecommendedSettings,
			Type:        None,
			state:       settingsAction,
		},
		settingsItem{
			title:       "Reload Settings",
			desc:        "Discard unsaved changes and read the stored settings again",
			MessageType: telemetry.ReloadSettings,
			Type:        None,
			state:       settingsAction,
		},
		settingsItem{
			title:       "Save Settings",
			desc:        "Persists any updates to the settings across restarts",
			MessageType: telemetry.SaveSettings,
			Type:        None,
			state:       settingsAction,
		},
		settingsItem{
			title: "Return to Main Menu",
			desc:  "Exit settings configuration and return to the initial actions menu",
			state: settingsExit,
		},
	}

	listDelegate := list.NewDefaultDelegate()
	m := settingsModel{list: list.New(items, listDelegate, 0, 0), textInput: textinput.New()}
	m.textInput.CharLimit = 32
	m.list.Title = "Trackd Settings"
	return m
}
