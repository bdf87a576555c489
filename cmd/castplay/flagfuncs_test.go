package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go2tv.app/castplay/devices"
	"go2tv.app/castplay/interactive"
	"go2tv.app/castplay/internal/config"
)

var found = []devices.Device{
	{Name: "Living Room", Addr: "10.0.0.1:8009"},
	{Name: "Kitchen", Addr: "10.0.0.2:8009", IsAudioOnly: true},
}

func swapDiscovery(t *testing.T, devs []devices.Device, err error) {
	t.Helper()

	origDiscover := discover
	origPick := pickInteractively
	t.Cleanup(func() {
		discover = origDiscover
		pickInteractively = origPick
	})

	discover = func(context.Context, time.Duration) ([]devices.Device, error) {
		return devs, err
	}
	pickInteractively = func([]devices.Device) (devices.Device, error) {
		t.Fatalf("unexpected interactive pick")
		return devices.Device{}, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Decode(config.New())
	require.NoError(t, err)
	return cfg
}

func TestCheckMflag(t *testing.T) {
	file := filepath.Join(t.TempDir(), "movie.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	opts := &options{media: file}
	require.NoError(t, checkflags(opts))
	require.True(t, filepath.IsAbs(opts.media))

	require.NoError(t, checkflags(&options{media: "https://example.com/a.mp4"}))
	require.Error(t, checkflags(&options{}))
	require.Error(t, checkflags(&options{media: filepath.Join(t.TempDir(), "missing.mp4")}))
	require.Error(t, checkflags(&options{media: file, thumbnail: filepath.Join(t.TempDir(), "missing.jpg")}))
}

func TestMediaItem(t *testing.T) {
	item := mediaItem(&options{media: "/videos/Big Buck Bunny.mp4", about: "rabbit"})
	require.Equal(t, "Big Buck Bunny.mp4", item.Name)
	require.Equal(t, "rabbit", item.About)
	require.Equal(t, "/videos/Big Buck Bunny.mp4", item.VideoURL)

	item = mediaItem(&options{media: "https://example.com/media/Sintel%20Trailer.mp4"})
	require.Equal(t, "Sintel Trailer.mp4", item.Name)

	item = mediaItem(&options{media: "https://example.com/", name: "Live"})
	require.Equal(t, "Live", item.Name)

	require.Equal(t, "https://example.com/", mediaTitle("https://example.com/"))
}

func TestResolveDeviceByAddress(t *testing.T) {
	swapDiscovery(t, nil, errors.New("discovery must not run"))

	cfg := testConfig(t)
	cfg.Cast.Address = "192.168.1.30:8009"

	d, err := resolveDevice(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "192.168.1.30:8009", d.Addr)
}

func TestResolveDeviceByName(t *testing.T) {
	swapDiscovery(t, found, nil)

	cfg := testConfig(t)
	cfg.Cast.Device = "kitch"

	d, err := resolveDevice(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "Kitchen", d.Name)

	cfg.Cast.Device = "garage"
	_, err = resolveDevice(context.Background(), cfg)
	require.ErrorIs(t, err, devices.ErrDeviceNotAvailable)
}

func TestResolveDeviceNoneFound(t *testing.T) {
	swapDiscovery(t, nil, devices.ErrNoDeviceAvailable)

	cfg := testConfig(t)
	d, err := resolveDevice(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, d)

	cfg.Cast.Device = "Kitchen"
	_, err = resolveDevice(context.Background(), cfg)
	require.ErrorIs(t, err, devices.ErrNoDeviceAvailable)
}

func TestResolveDeviceInteractive(t *testing.T) {
	swapDiscovery(t, found, nil)

	pickInteractively = func(devs []devices.Device) (devices.Device, error) {
		return devs[1], nil
	}
	d, err := resolveDevice(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.Equal(t, "Kitchen", d.Name)

	pickInteractively = func([]devices.Device) (devices.Device, error) {
		return devices.Device{}, interactive.ErrPickCancelled
	}
	d, err = resolveDevice(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestListDevices(t *testing.T) {
	swapDiscovery(t, found, nil)

	var buf bytes.Buffer
	require.NoError(t, listDevices(context.Background(), &buf, testConfig(t)))

	out := buf.String()
	require.Contains(t, out, "Living Room")
	require.Contains(t, out, "10.0.0.2:8009")
	require.Contains(t, out, "Chromecast Audio")
}

func TestVersionString(t *testing.T) {
	tt := []struct {
		version, build, want string
	}{
		{"1.2.3", "", "castplay version v1.2.3"},
		{"v2.0", "abc123", "castplay version v2.0.0, build abc123"},
		{"", "", "castplay version dev"},
		{"nightly", "", "castplay version dev"},
	}

	for _, tc := range tt {
		require.Equal(t, tc.want, versionString(tc.version, tc.build))
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"media", "name", "about", "thumbnail", "device", "address", "list", "config", "version", "discovery-timeout", "log-file", "log-level"} {
		require.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	require.Equal(t, "m", cmd.Flags().Lookup("media").Shorthand)
	require.Equal(t, "d", cmd.Flags().Lookup("device").Shorthand)
}
