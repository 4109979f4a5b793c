package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"avaneesh/imgstream-go/internal/cliconfig"
	"avaneesh/imgstream-go/pkg/bitmap"
	"avaneesh/imgstream-go/pkg/imgstream"
	"avaneesh/imgstream-go/pkg/sender"
)

var longHelp = strings.TrimSpace(`
Stream an image to imgview in offset-tagged chunks.

PNG, JPEG, GIF, BMP and WebP files are scaled down to the screen and
converted to a 1-bit bitmap; .pbi files are sent as they are. The image is
sent whenever the viewer asks for it, optionally on an interval and whenever
the file changes. Configure via file ($HOME/.imgstream/config.toml),
IMGSTREAM_* environment variables or flags.
`)

var exampleUsage = strings.TrimSpace(`
  imgsend --image photo.png
  imgsend --transport quic --address 0.0.0.0:9300 --image photo.png --watch
  imgsend --transport webrtc --offer --image photo.png
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	cfg.Listen = true
	var cfgPath string

	root := &cobra.Command{
		Use:     "imgsend",
		Short:   "Stream an image to imgview",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// A positional image path counts as the --image flag
			if len(args) == 1 {
				cfg.Image = args[0]
				changed["image"] = true
			}

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.ValidateSender(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.imgstream/config.toml)")
	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "transport: udp, tcp, quic or webrtc")
	root.Flags().StringVar(&cfg.Address, "address", cfg.Address, "local address, or viewer address with --listen=false")
	root.Flags().BoolVar(&cfg.Listen, "listen", cfg.Listen, "listen for the viewer")
	root.Flags().DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "delay between reconnection attempts")
	root.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "bytes per chunk; must match the viewer")

	root.Flags().StringVar(&cfg.Image, "image", cfg.Image, "image file to send")
	root.Flags().IntVar(&cfg.Width, "width", cfg.Width, "screen width in pixels")
	root.Flags().IntVar(&cfg.Height, "height", cfg.Height, "screen height in pixels")
	root.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "re-send the image periodically (0 disables)")
	root.Flags().DurationVar(&cfg.ChunkDelay, "chunk-delay", cfg.ChunkDelay, "pause between chunks")
	root.Flags().StringVar(&cfg.Status, "status", cfg.Status, "status text sent before each image")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "re-send when the image file changes")

	root.Flags().BoolVar(&cfg.Offer, "offer", cfg.Offer, "create the WebRTC offer instead of answering")
	root.Flags().StringSliceVar(&cfg.ICEServers, "ice-servers", cfg.ICEServers, "STUN/TURN servers for WebRTC")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	root.Flags().BoolVar(&cfg.FrameDebug, "frame-debug", cfg.FrameDebug, "hex dump every message (with --log-level debug)")

	if err := root.Execute(); err != nil {
		log := cliconfig.Logger("error")
		log.Error().Err(err).Msg("imgsend")
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config) error {
	log := cliconfig.Logger(cfg.LogLevel)
	level, err := imgstream.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msg("using info level")
	}
	libLog := imgstream.NewLogger(log, level)
	imgstream.SetLogger(libLog)
	imgstream.EnableFrameDebug(cfg.FrameDebug)

	log.Info().Interface("config", cfg).Msg("configuration")

	load := func(path string) ([]byte, error) {
		return bitmap.LoadFile(path, cfg.Width, cfg.Height)
	}
	blob, err := load(cfg.Image)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	if len(blob) > cfg.BufferCapacity {
		log.Warn().
			Int("bytes", len(blob)).
			Int("capacity", cfg.BufferCapacity).
			Msg("image is larger than the default viewer buffer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Transport == "webrtc" {
		fmt.Fprintln(os.Stderr, "exchange session descriptions: paste the peer's line on stdin, send ours from stdout")
	}
	physical, err := cliconfig.OpenPhysical(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Transport, err)
	}

	manager := imgstream.NewManagerWithLogger(libLog)
	defer manager.Shutdown()

	ch, err := manager.AddChannel("imgsend", physical)
	if err != nil {
		return err
	}

	scfg := sender.DefaultConfig()
	scfg.MaxChunkSize = cfg.ChunkSize
	scfg.Interval = cfg.Interval
	scfg.ChunkDelay = cfg.ChunkDelay
	scfg.StatusText = cfg.Status

	s, err := ch.AddSender(scfg)
	if err != nil {
		return fmt.Errorf("create sender: %w", err)
	}
	defer s.Shutdown()

	s.SetImage(blob)
	s.Start()

	// A dialing sender pushes once; a listening one waits for the request
	if !cfg.Listen || cfg.Transport == "webrtc" {
		if err := s.Push(ctx); err != nil {
			log.Warn().Err(err).Msg("initial push failed")
		}
	}

	watchDone := make(chan error, 1)
	if cfg.Watch {
		go func() {
			watchDone <- sender.Watch(ctx, cfg.Image, load, s)
		}()
	}

	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
	case err := <-watchDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watch: %w", err)
		}
	}

	stats := s.Stats()
	log.Info().
		Uint64("requests", stats.GetRequests()).
		Uint64("pushes", stats.GetPushes()).
		Uint64("fragments", stats.GetFragments()).
		Uint64("failures", stats.GetFailures()).
		Msg("statistics")
	return nil
}
