// Package devices finds cast receivers on the local network and picks one
// by name.
package devices

import (
	"errors"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

var (
	ErrNoDeviceAvailable  = errors.New("loadChromecastDevices: No available receivers")
	ErrDeviceNotAvailable = errors.New("devicePicker: Requested device not available")
	ErrAmbiguousDevice    = errors.New("devicePicker: Requested device matches more than one receiver")
)

// Device is a discovered cast receiver.
type Device struct {
	Name        string
	Addr        string // host:port
	IsAudioOnly bool
}

func (d Device) String() string {
	if d.IsAudioOnly {
		return d.Name + " (Chromecast Audio)"
	}
	return d.Name + " (Chromecast)"
}

// PickDevice selects the receiver named by query. An exact, case
// insensitive match on the name or address wins. Otherwise the query is
// fuzzy matched against the names and must have a single best match.
func PickDevice(devs []Device, query string) (Device, error) {
	if len(devs) == 0 {
		return Device{}, ErrNoDeviceAvailable
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return Device{}, ErrDeviceNotAvailable
	}

	if d, ok := lo.Find(devs, func(d Device) bool {
		return strings.EqualFold(d.Name, query) || d.Addr == query
	}); ok {
		return d, nil
	}

	names := lo.Map(devs, func(d Device, _ int) string { return d.Name })
	matches := fuzzy.RankFindFold(query, names)
	if len(matches) == 0 {
		return Device{}, ErrDeviceNotAvailable
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > 1 && matches[0].Distance == matches[1].Distance {
		return Device{}, ErrAmbiguousDevice
	}

	return devs[matches[0].OriginalIndex], nil
}

// SortDevices orders devices by name, then address.
func SortDevices(devs []Device) {
	sort.Slice(devs, func(i, j int) bool {
		if devs[i].Name != devs[j].Name {
			return devs[i].Name < devs[j].Name
		}
		return devs[i].Addr < devs[j].Addr
	})
}
