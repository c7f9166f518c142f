package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"pfeifer.dev/trackd/telemetry"
)

// Terminals only report key presses, so a key counts as held until
// KEY_HOLD passes without it repeating.
const KEY_HOLD = 400 * time.Millisecond

const (
	keyForward = iota
	keyBack
	keyLeft
	keyRight
	keyBrake
	keyCount
)

var keyBindings = map[string]int{
	"up":    keyForward,
	"w":     keyForward,
	"down":  keyBack,
	"s":     keyBack,
	"left":  keyLeft,
	"a":     keyLeft,
	"right": keyRight,
	"d":     keyRight,
	" ":     keyBrake,
}

type driveModel struct {
	held   [keyCount]time.Time
	sent   telemetry.Keys
	target string
}

func (d driveModel) press(key string, now time.Time) (driveModel, bool) {
	k, ok := keyBindings[key]
	if !ok {
		return d, false
	}
	d.held[k] = now.Add(KEY_HOLD)
	return d, true
}

func (d driveModel) keysAt(now time.Time) telemetry.Keys {
	held := func(k int) bool { return now.Before(d.held[k]) }
	return telemetry.Keys{
		Forward: held(keyForward),
		Back:    held(keyBack),
		Left:    held(keyLeft),
		Right:   held(keyRight),
		Brake:   held(keyBrake),
	}
}

func manualVehicles(f telemetry.Frame) []string {
	manual := lo.Filter(f.Vehicles, func(v telemetry.VehicleFrame, _ int) bool { return !v.Autopilot })
	return lo.Map(manual, func(v telemetry.VehicleFrame, _ int) string { return v.Name })
}

// pickTarget keeps the current target while it is still manual, otherwise
// it falls back to the first manual vehicle.
func (d driveModel) pickTarget(f telemetry.Frame, next bool) string {
	names := manualVehicles(f)
	if len(names) == 0 {
		return ""
	}
	i := lo.IndexOf(names, d.target)
	if i < 0 {
		return names[0]
	}
	if next {
		return names[(i+1)%len(names)]
	}
	return d.target
}

// sync sends the key state whenever it changed since the last send.
func (d driveModel) sync(mm *uiModel, now time.Time) driveModel {
	if d.target == "" {
		return d
	}
	keys := d.keysAt(now)
	if keys == d.sent {
		return d
	}
	mm.send(telemetry.Command{Type: telemetry.SetKeys, Vehicle: d.target, Keys: &keys})
	d.sent = keys
	return d
}

func (d driveModel) release(mm *uiModel) driveModel {
	d.held = [keyCount]time.Time{}
	return d.sync(mm, time.Now())
}

func (d driveModel) Update(msg tea.Msg, mm *uiModel) (driveModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		now := time.Now()
		switch msg.String() {
		case "tab":
			d = d.release(mm)
			d.target = d.pickTarget(mm.frame, true)
			return d, nil
		case "r":
			if d.target != "" {
				mm.send(telemetry.Command{Type: telemetry.Respawn, Vehicle: d.target})
			}
			return d, nil
		}
		var ok bool
		if d, ok = d.press(msg.String(), now); ok {
			d = d.sync(mm, now)
		}
	case TickMsg:
		d.target = d.pickTarget(mm.frame, false)
		d = d.sync(mm, time.Time(msg))
	}
	return d, nil
}

func (d driveModel) View(mm *uiModel) string {
	if d.target == "" {
		return docStyle.Render("no manual car in the scene\n\n(esc to return)") + "\n"
	}
	status := ""
	for _, v := range mm.frame.Vehicles {
		if v.Name == d.target {
			status = vehicleRow(v)
		}
	}
	return docStyle.Render(fmt.Sprintf(
		"driving %s\n\n%s\n\n%s",
		d.target,
		status,
		"arrows or wasd to drive, space to brake, r to respawn, tab to switch car, esc to return",
	)) + "\n"
}
