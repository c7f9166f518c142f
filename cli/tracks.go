package cli

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/tracks"
)

type tracksModel struct {
	list list.Model
}

type trackItem struct {
	title, desc string
}

func (i trackItem) Title() string       { return i.title }
func (i trackItem) Description() string { return i.desc }
func (i trackItem) FilterValue() string { return i.title }

func trackItems() []list.Item {
	return lo.Map(tracks.List(), func(name string, _ int) list.Item {
		desc := tracks.Resolve(name)
		if _, ok := tracks.Builtin[name]; ok {
			desc = "builtin"
		}
		return trackItem{title: name, desc: desc}
	})
}

func getTracksModel() tracksModel {
	listDelegate := list.NewDefaultDelegate()
	m := tracksModel{list: list.New(trackItems(), listDelegate, 0, 0)}
	m.list.Title = "Select Track"
	return m
}

func (m tracksModel) Update(msg tea.Msg, mm *uiModel) (tracksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.Type {
		case tea.KeyEsc:
			mm.state = showMenu
			return m, nil
		case tea.KeyEnter:
			it, ok := m.list.SelectedItem().(trackItem)
			if ok {
				mm.send(telemetry.Command{Type: telemetry.LoadTrack, Str: it.title})
			}
			mm.state = showMenu
			return m, nil
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m tracksModel) View() string {
	return docStyle.Render(m.list.View())
}
