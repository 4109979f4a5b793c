package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"avaneesh/imgstream-go/internal/cliconfig"
	"avaneesh/imgstream-go/pkg/display"
	"avaneesh/imgstream-go/pkg/display/window"
	"avaneesh/imgstream-go/pkg/imgstream"
	"avaneesh/imgstream-go/pkg/transfer"
	"avaneesh/imgstream-go/pkg/viewer"
)

var longHelp = strings.TrimSpace(`
Show an image streamed from imgsend on a small 1-bit screen.

The viewer asks the sender for the image at startup, reassembles the chunks
it receives and shows the result with a one-line status strip. Configure via
file ($HOME/.imgstream/config.toml), IMGSTREAM_* environment variables or flags.
`)

var exampleUsage = strings.TrimSpace(`
  imgview --address 127.0.0.1:9300
  imgview --transport quic --address 10.0.0.2:9300 --display window
  imgview --transport tcp --display ssd1306 --i2c-bus /dev/i2c-1 --width 128 --height 64
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// logCallbacks reports viewer events on the CLI logger
type logCallbacks struct {
	log zerolog.Logger
}

func (c logCallbacks) OnImage(img image.Image, done *transfer.Completion) {
	c.log.Info().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Int("bytes", len(done.Image)).
		Int("fragments", done.Fragments).
		Msg("image shown")
}

func (c logCallbacks) OnStatus(text string) {
	c.log.Debug().Str("status", text).Msg("status")
}

func (c logCallbacks) OnTransferError(err error) {
	c.log.Warn().Err(err).Msg("transfer error")
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "imgview",
		Short:   "Show an image streamed over UDP, TCP, QUIC or WebRTC",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// IMGSTREAM_* override file config but not flags
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.imgstream/config.toml)")
	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "transport: udp, tcp, quic or webrtc")
	root.Flags().StringVar(&cfg.Address, "address", cfg.Address, "sender address, or local address with --listen")
	root.Flags().BoolVar(&cfg.Listen, "listen", cfg.Listen, "listen for the sender instead of connecting")
	root.Flags().DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "delay between reconnection attempts")
	root.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk size used by the sender")
	root.Flags().IntVar(&cfg.BufferCapacity, "buffer-capacity", cfg.BufferCapacity, "reassembly buffer size in bytes")
	root.Flags().DurationVar(&cfg.StallTimeout, "stall-timeout", cfg.StallTimeout, "abandon and re-request a transfer after this long without a chunk (0 disables)")

	root.Flags().StringVar(&cfg.Display, "display", cfg.Display, "display: headless, ssd1306 or window")
	root.Flags().StringVar(&cfg.I2CBus, "i2c-bus", cfg.I2CBus, "I2C bus for the ssd1306 display (default: first bus)")
	root.Flags().IntVar(&cfg.Width, "width", cfg.Width, "screen width in pixels")
	root.Flags().IntVar(&cfg.Height, "height", cfg.Height, "screen height in pixels")
	root.Flags().IntVar(&cfg.Scale, "scale", cfg.Scale, "window zoom factor")

	root.Flags().BoolVar(&cfg.Offer, "offer", cfg.Offer, "create the WebRTC offer instead of answering")
	root.Flags().StringSliceVar(&cfg.ICEServers, "ice-servers", cfg.ICEServers, "STUN/TURN servers for WebRTC")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	root.Flags().BoolVar(&cfg.FrameDebug, "frame-debug", cfg.FrameDebug, "hex dump every message (with --log-level debug)")

	if err := root.Execute(); err != nil {
		log := cliconfig.Logger("error")
		log.Error().Err(err).Msg("imgview")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	presenter, win, err := openPresenter(cfg, libLog)
	if err != nil {
		return err
	}
	defer presenter.Close()

	if cfg.Transport == "webrtc" {
		fmt.Fprintln(os.Stderr, "exchange session descriptions: paste the peer's line on stdin, send ours from stdout")
	}
	physical, err := cliconfig.OpenPhysical(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Transport, err)
	}

	manager := imgstream.NewManagerWithLogger(libLog)
	defer manager.Shutdown()

	ch, err := manager.AddChannel("imgview", physical)
	if err != nil {
		return err
	}

	vcfg := viewer.DefaultConfig()
	vcfg.Transfer.MaxChunkSize = cfg.ChunkSize
	vcfg.Transfer.BufferCapacity = cfg.BufferCapacity
	vcfg.StallTimeout = cfg.StallTimeout
	vcfg.MaxImageWidth = cfg.Width
	vcfg.MaxImageHeight = cfg.Height
	vcfg.InitialStatus = "waiting for image"

	v, err := ch.AddViewer(vcfg, presenter, logCallbacks{log: log})
	if err != nil {
		return fmt.Errorf("create viewer: %w", err)
	}
	defer v.Shutdown()

	if err := v.Enable(); err != nil {
		// The sender may not be up yet; reconnects and the stall timer retry
		log.Warn().Err(err).Msg("initial request failed")
	}

	if win != nil {
		go func() {
			<-sigCh
			log.Info().Msg("received signal, stopping...")
			win.Close()
		}()
		// ebiten needs the main goroutine
		if err := win.Run(); err != nil {
			return fmt.Errorf("window: %w", err)
		}
	} else {
		<-sigCh
		log.Info().Msg("received signal, stopping...")
	}

	if stats := v.Stats(); stats != nil {
		log.Info().
			Uint64("transfers", stats.GetTransfers()).
			Uint64("fragments", stats.GetRxFragments()).
			Uint64("overflows", stats.GetBufferOverflows()).
			Uint64("stalls", stats.GetStalls()).
			Uint64("decode_failures", stats.GetDecodeFailures()).
			Msg("statistics")
	}
	return nil
}

// openPresenter returns the presenter for cfg.Display, plus the window when
// one must be run on the main goroutine
func openPresenter(cfg cliconfig.Config, log imgstream.Logger) (display.Presenter, *window.Window, error) {
	switch cfg.Display {
	case "ssd1306":
		p, err := display.OpenSSD1306(display.SSD1306Config{
			Bus:    cfg.I2CBus,
			Width:  cfg.Width,
			Height: cfg.Height,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case "window":
		w := window.New(window.Config{
			Title:  "imgview",
			Width:  cfg.Width,
			Height: cfg.Height,
			Scale:  cfg.Scale,
		})
		return w, w, nil
	default:
		return display.NewMemory(), nil, nil
	}
}
