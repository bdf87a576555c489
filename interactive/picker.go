package interactive

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go2tv.app/castplay/devices"
)

var ErrPickCancelled = errors.New("devicePicker: selection cancelled")

var (
	pickerPaddingStyle = lipgloss.NewStyle().Padding(1, 2)
	pickerCursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	pickerHintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type pickerModel struct {
	devices   []devices.Device
	cursor    int
	chosen    bool
	cancelled bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = true
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}

	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString("Select a cast device\n\n")

	for i, d := range m.devices {
		line := fmt.Sprintf("%s  %s", d.String(), d.Addr)
		if i == m.cursor {
			b.WriteString(pickerCursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(pickerHintStyle.Render("enter: select  q: cancel"))

	return pickerPaddingStyle.Render(b.String())
}

// PickDevice lets the user choose one of devs. A single device is returned
// without prompting.
func PickDevice(devs []devices.Device) (devices.Device, error) {
	switch len(devs) {
	case 0:
		return devices.Device{}, devices.ErrNoDeviceAvailable
	case 1:
		return devs[0], nil
	}

	final, err := tea.NewProgram(pickerModel{devices: devs}, tea.WithAltScreen()).Run()
	if err != nil {
		return devices.Device{}, fmt.Errorf("PickDevice: %w", err)
	}

	return pickerResult(final)
}

func pickerResult(final tea.Model) (devices.Device, error) {
	m, ok := final.(pickerModel)
	if !ok || !m.chosen {
		return devices.Device{}, ErrPickCancelled
	}
	return m.devices[m.cursor], nil
}
