package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go2tv.app/castplay/castprotocol"
	"go2tv.app/castplay/devices"
	"go2tv.app/castplay/interactive"
	"go2tv.app/castplay/internal/config"
	"go2tv.app/castplay/internal/logging"
	"go2tv.app/castplay/localplayer"
	"go2tv.app/castplay/playback"
	"go2tv.app/castplay/utils"
)

var (
	version string
	build   string
)

type options struct {
	media      string
	name       string
	about      string
	thumbnail  string
	configFile string
	list       bool
	version    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	check(newRootCmd().ExecuteContext(ctx))
}

func newRootCmd() *cobra.Command {
	v := config.New()
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "castplay",
		Short:         "Play media locally and hand it over to a Chromecast",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.media, "media", "m", "", "Path or URL of the media to play.")
	f.StringVar(&opts.name, "name", "", "Title shown on screen and on the receiver. Defaults to the file name.")
	f.StringVar(&opts.about, "about", "", "Subtitle sent to the receiver.")
	f.StringVar(&opts.thumbnail, "thumbnail", "", "Path or URL of a poster image.")
	f.StringVar(&opts.configFile, "config", "", "Config file. Defaults to castplay.yaml in the user config dir.")
	f.BoolVarP(&opts.list, "list", "l", false, "List the cast receivers on the network.")
	f.BoolVar(&opts.version, "version", false, "Print version.")

	f.StringP("device", "d", "", "Cast to the receiver with this name.")
	lo.Must0(v.BindPFlag(config.KeyDevice, f.Lookup("device")))

	f.String("address", "", "Cast to the receiver at host[:port], skipping discovery.")
	lo.Must0(v.BindPFlag(config.KeyAddress, f.Lookup("address")))

	f.Duration("discovery-timeout", 0, "How long to browse for receivers.")
	lo.Must0(v.BindPFlag(config.KeyDiscoveryTimeout, f.Lookup("discovery-timeout")))

	f.String("log-file", "", "Write logs to this file.")
	lo.Must0(v.BindPFlag(config.KeyLogFile, f.Lookup("log-file")))

	f.String("log-level", "", "Log level (trace, debug, info, warn, error).")
	lo.Must0(v.BindPFlag(config.KeyLogLevel, f.Lookup("log-level")))

	return cmd
}

func run(ctx context.Context, v *viper.Viper, opts *options) error {
	if opts.version {
		fmt.Println(versionString(version, build))
		return nil
	}

	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return errors.Wrap(err, "config error")
	}

	log, logCloser, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return errors.Wrap(err, "logging error")
	}
	defer logCloser.Close()

	if opts.list {
		return listDevices(ctx, os.Stdout, cfg)
	}

	if err := checkflags(opts); err != nil {
		return err
	}

	if err := utils.CheckFFprobe(ctx, cfg.Media.FFprobe); err != nil {
		log.Warn().Str("Method", "run").Err(err).Msg("media duration will stay unknown")
	}

	dev, err := resolveDevice(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "device error")
	}

	return play(ctx, cfg, log, mediaItem(opts), dev)
}

func play(ctx context.Context, cfg *config.Config, log zerolog.Logger, item playback.MediaItem, dev *devices.Device) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := playback.NewLoop()
	go loop.Run(ctx)

	player := localplayer.New(cfg.Media.FFprobe)
	player.Logger = log
	player.Load(ctx, item.VideoURL)

	scr, err := interactive.InitPlayerScreen(item.Name, cancel)
	if err != nil {
		return err
	}
	scr.Logger = log
	scr.ThumbnailURL = item.ThumbnailURL

	var (
		remote  playback.RemoteSession
		session *castprotocol.Session
	)
	if dev != nil {
		publisher := castprotocol.NewPublisher(dev.Addr)
		publisher.Logger = log
		defer publisher.Close()

		session = castprotocol.NewSession(castprotocol.SessionOptions{
			Dial:           dialer(dev.Addr, log),
			Resolver:       publisher,
			StatusInterval: cfg.Cast.StatusInterval,
			Logger:         log,
		})
		defer session.Disconnect()

		remote = session
		scr.Session = session
		scr.DeviceName = dev.Name
	}

	m := playback.NewMachine(item, player, remote, scr, playback.Options{
		Dispatcher:    loop,
		LocalInterval: cfg.Playback.LocalInterval,
		CastInterval:  cfg.Playback.CastInterval,
		Studio:        cfg.Cast.Studio,
		Logger:        log,
	})
	defer m.Close()

	player.OnFinished = m.LocalFinished
	scr.Intents = playback.NewControls(m)

	if session != nil {
		go func() {
			if err := session.Connect(ctx); err != nil {
				log.Error().Str("Method", "play").Err(err).Msg("cast connect")
				scr.EmitMsg("Cast connection failed, playing locally")
			}
		}()
	}

	return scr.Run(ctx)
}

func dialer(addr string, log zerolog.Logger) func() (castprotocol.Client, error) {
	return func() (castprotocol.Client, error) {
		c, err := castprotocol.NewCastClient(addr)
		if err != nil {
			return nil, err
		}
		c.Logger = log
		return c, nil
	}
}

func check(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}
