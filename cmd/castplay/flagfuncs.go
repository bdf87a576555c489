package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"go2tv.app/castplay/devices"
	"go2tv.app/castplay/interactive"
	"go2tv.app/castplay/internal/config"
	"go2tv.app/castplay/playback"
	"go2tv.app/castplay/utils"
	"golang.org/x/mod/semver"
)

// Swapped in tests.
var (
	discover          = devices.LoadChromecastDevices
	pickInteractively = interactive.PickDevice
)

func checkflags(opts *options) error {
	if err := checkMflag(opts); err != nil {
		return errors.Wrap(err, "checkflags error")
	}

	if err := checkThumbnailFlag(opts); err != nil {
		return errors.Wrap(err, "checkflags error")
	}

	return nil
}

func checkMflag(opts *options) error {
	if opts.media == "" {
		return errors.New("no media defined, use --media")
	}

	if utils.IsURL(opts.media) {
		return nil
	}

	if _, err := os.Stat(opts.media); err != nil {
		return errors.Wrap(err, "checkMflag error")
	}

	abs, err := filepath.Abs(opts.media)
	if err != nil {
		return errors.Wrap(err, "checkMflag error")
	}
	opts.media = abs

	return nil
}

func checkThumbnailFlag(opts *options) error {
	if opts.thumbnail == "" || utils.IsURL(opts.thumbnail) {
		return nil
	}

	if _, err := os.Stat(opts.thumbnail); err != nil {
		return errors.Wrap(err, "checkThumbnailFlag error")
	}

	abs, err := filepath.Abs(opts.thumbnail)
	if err != nil {
		return errors.Wrap(err, "checkThumbnailFlag error")
	}
	opts.thumbnail = abs

	return nil
}

func mediaItem(opts *options) playback.MediaItem {
	name := opts.name
	if name == "" {
		name = mediaTitle(opts.media)
	}

	return playback.MediaItem{
		Name:         name,
		About:        opts.about,
		ThumbnailURL: opts.thumbnail,
		VideoURL:     opts.media,
	}
}

func mediaTitle(media string) string {
	if utils.IsURL(media) {
		u, err := url.Parse(media)
		if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
			return media
		}
		if unescaped, err := url.PathUnescape(path.Base(u.Path)); err == nil {
			return unescaped
		}
		return path.Base(u.Path)
	}

	return filepath.Base(media)
}

// resolveDevice returns the receiver to cast to, or nil to play locally
// only.
func resolveDevice(ctx context.Context, cfg *config.Config) (*devices.Device, error) {
	if cfg.Cast.Address != "" {
		return &devices.Device{Name: cfg.Cast.Address, Addr: cfg.Cast.Address}, nil
	}

	devs, err := discover(ctx, cfg.Cast.DiscoveryTimeout)
	if err != nil {
		if errors.Is(err, devices.ErrNoDeviceAvailable) && cfg.Cast.Device == "" {
			return nil, nil
		}
		return nil, err
	}

	if cfg.Cast.Device != "" {
		d, err := devices.PickDevice(devs, cfg.Cast.Device)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}

	d, err := pickInteractively(devs)
	if err != nil {
		if errors.Is(err, interactive.ErrPickCancelled) {
			return nil, nil
		}
		return nil, err
	}

	return &d, nil
}

func listDevices(ctx context.Context, w io.Writer, cfg *config.Config) error {
	devs, err := discover(ctx, cfg.Cast.DiscoveryTimeout)
	if err != nil {
		return errors.Wrap(err, "listDevices error")
	}

	boldStart := ""
	boldEnd := ""
	if runtime.GOOS == "linux" {
		boldStart = "\033[1m"
		boldEnd = "\033[0m"
	}

	_, _ = fmt.Fprintln(w)
	for i, d := range devs {
		kind := "Chromecast"
		if d.IsAudioOnly {
			kind = "Chromecast Audio"
		}
		_, _ = fmt.Fprintf(w, "%sDevice %d%s\n", boldStart, i+1, boldEnd)
		_, _ = fmt.Fprintf(w, "%s--------%s\n", boldStart, boldEnd)
		_, _ = fmt.Fprintf(w, "%sName:%s    %s\n", boldStart, boldEnd, d.Name)
		_, _ = fmt.Fprintf(w, "%sType:%s    %s\n", boldStart, boldEnd, kind)
		_, _ = fmt.Fprintf(w, "%sAddress:%s %s\n", boldStart, boldEnd, d.Addr)
		_, _ = fmt.Fprintln(w)
	}

	return nil
}

// versionString reports v when it is a semantic version, dev otherwise.
func versionString(v, b string) string {
	norm := strings.TrimSpace(v)
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}

	out := "castplay version dev"
	if semver.IsValid(norm) {
		out = "castplay version " + semver.Canonical(norm)
	}
	if b != "" {
		out += ", build " + b
	}

	return out
}
