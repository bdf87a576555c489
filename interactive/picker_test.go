package interactive

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go2tv.app/castplay/devices"
)

var pickerDevices = []devices.Device{
	{Name: "Attic", Addr: "10.0.0.1:8009"},
	{Name: "Bedroom", Addr: "10.0.0.2:8009"},
	{Name: "Kitchen", Addr: "10.0.0.3:8009", IsAudioOnly: true},
}

func press(t *testing.T, m tea.Model, keys ...tea.KeyMsg) tea.Model {
	t.Helper()
	for _, k := range keys {
		m, _ = m.Update(k)
	}
	return m
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyJ     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
)

func TestPickerSelects(t *testing.T) {
	m := press(t, pickerModel{devices: pickerDevices}, keyDown, keyJ, keyDown, keyUp)

	_, cmd := m.Update(keyEnter)
	require.NotNil(t, cmd)

	got, err := pickerResult(press(t, m, keyEnter))
	require.NoError(t, err)
	require.Equal(t, "Bedroom", got.Name)
}

func TestPickerCancel(t *testing.T) {
	m := press(t, pickerModel{devices: pickerDevices}, keyDown, keyEsc)

	_, err := pickerResult(m)
	require.True(t, errors.Is(err, ErrPickCancelled))
}

func TestPickerView(t *testing.T) {
	m := press(t, pickerModel{devices: pickerDevices}, keyDown)

	view := m.View()
	require.Contains(t, view, "Bedroom (Chromecast)")
	require.Contains(t, view, "Kitchen (Chromecast Audio)")
	require.Contains(t, view, "10.0.0.1:8009")
}

func TestPickDeviceShortLists(t *testing.T) {
	_, err := PickDevice(nil)
	require.ErrorIs(t, err, devices.ErrNoDeviceAvailable)

	got, err := PickDevice(pickerDevices[:1])
	require.NoError(t, err)
	require.Equal(t, "Attic", got.Name)
}
