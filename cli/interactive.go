package cli

import (
	"encoding/json"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"

	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/tracks"
)

func selectOne(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
	}
	_, result, err := prompt.Run()
	return result, err
}

func ask(label string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	return prompt.Run()
}

// promptCommand walks the user through building one command.
func promptCommand() (cmd telemetry.Command, err error) {
	result, err := selectOne("Select Action", []string{"Pause", "Resume", "Respawn", "Load Track", "Setting", "Last Summary"})
	if err != nil {
		return cmd, err
	}

	switch result {
	case "Pause":
		return telemetry.Command{Type: telemetry.Pause}, nil
	case "Resume":
		return telemetry.Command{Type: telemetry.Resume}, nil
	case "Respawn":
		name, err := ask("Vehicle")
		return telemetry.Command{Type: telemetry.Respawn, Vehicle: name}, err
	case "Load Track":
		name, err := selectOne("Track", tracks.List())
		return telemetry.Command{Type: telemetry.LoadTrack, Str: name}, err
	case "Setting":
		items := getSettingsModel().list.Items()
		titles := make([]string, 0, len(items))
		byTitle := map[string]settingsItem{}
		for _, i := range items {
			it := i.(settingsItem)
			if it.state == settingsExit {
				continue
			}
			titles = append(titles, it.title)
			byTitle[it.title] = it
		}
		title, err := selectOne("Setting", titles)
		if err != nil {
			return cmd, err
		}
		it := byTitle[title]
		if it.Type == None {
			return telemetry.Command{Type: it.MessageType}, nil
		}
		value, err := ask(it.title)
		if err != nil {
			return cmd, err
		}
		return buildCommand(it, value)
	case "Last Summary":
		summary, err := lastSummary()
		if err != nil {
			return cmd, err
		}
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
		return cmd, nil
	}
	return cmd, errors.Errorf("unknown action %s", result)
}

func prompt() error {
	cmd, err := promptCommand()
	if err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return nil
	}
	if cmd.Type == "" {
		return nil
	}
	pub, err := telemetry.NewPublisher[telemetry.Command](telemetry.IN_SERVICE)
	if err != nil {
		return err
	}
	return pub.Send(cmd)
}
