package devices

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/samber/lo"
)

const (
	// CapabilityVideoOut is the bitmask for video output capability (bit 0)
	CapabilityVideoOut = 1

	googlecastService = "_googlecast._tcp"
)

// Swapped in tests.
var (
	mdnsQuery        = mdns.Query
	activeInterfaces = getActiveNetworkInterfaces
)

// LoadChromecastDevices browses for receivers for up to timeout on every
// active interface.
func LoadChromecastDevices(ctx context.Context, timeout time.Duration) ([]Device, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("LoadChromecastDevices: %w", context.DeadlineExceeded)
	}

	found := make(map[string]Device)
	var mu sync.Mutex

	entriesCh := make(chan *mdns.ServiceEntry, 256)
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			if d, ok := deviceFromEntry(entry); ok {
				mu.Lock()
				found[d.Addr] = d
				mu.Unlock()
			}
		}
	}()

	queryIface := func(iface *net.Interface) {
		params := mdns.DefaultParams(googlecastService)
		params.Entries = entriesCh
		params.Timeout = timeout
		params.DisableIPv6 = true
		params.WantUnicastResponse = true
		params.Logger = log.New(io.Discard, "", 0)
		params.Interface = iface
		_ = mdnsQuery(params)
	}

	interfaces := activeInterfaces()
	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func() {
				defer wg.Done()
				queryIface(&iface)
			}()
		}
		wg.Wait()
	} else {
		queryIface(nil)
	}

	close(entriesCh)
	<-doneCh

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("LoadChromecastDevices: %w", err)
	}

	devs := lo.Values(found)
	if len(devs) == 0 {
		return nil, ErrNoDeviceAvailable
	}
	SortDevices(devs)

	return devs, nil
}

func deviceFromEntry(entry *mdns.ServiceEntry) (Device, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return Device{}, false
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return Device{}, false
	}

	d := Device{
		Name: entry.Name,
		Addr: net.JoinHostPort(entry.AddrV4.String(), strconv.Itoa(entry.Port)),
	}

	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "fn="); ok {
			d.Name = after
		}
		if after, ok := strings.CutPrefix(txt, "ca="); ok {
			d.IsAudioOnly = isChromecastAudioOnly(after)
		}
	}

	if idx := strings.Index(d.Name, "._googlecast"); idx > 0 {
		d.Name = d.Name[:idx]
	}

	return d, true
}

// getActiveNetworkInterfaces returns the interfaces that are up,
// multicast-capable, not loopback, and have an IPv4 address.
func getActiveNetworkInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		if lo.ContainsBy(addrs, func(addr net.Addr) bool {
			ipnet, ok := addr.(*net.IPNet)
			return ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback()
		}) {
			active = append(active, iface)
		}
	}

	return active
}

// isChromecastAudioOnly reads the "ca" capability bitmask. A device without
// the video out bit is audio only. Unparseable values count as video.
func isChromecastAudioOnly(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		return false
	}
	return (ca & CapabilityVideoOut) == 0
}
