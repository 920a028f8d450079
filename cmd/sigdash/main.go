package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/guidoenr/sigdash/internal/app"
	"github.com/guidoenr/sigdash/internal/config"
	"github.com/guidoenr/sigdash/internal/drought"
	"github.com/guidoenr/sigdash/internal/logging"
	"github.com/guidoenr/sigdash/internal/params"
	"github.com/guidoenr/sigdash/internal/stream"
	"github.com/guidoenr/sigdash/internal/web"
)

func main() {
	os.Exit(run())
}

// run wires the process together and returns the exit code once every
// deferred cleanup has had its chance to run.
func run() int {
	var (
		configPath  = flag.String("config", "", "Optional JSON settings file")
		port        = flag.Int("port", 8080, "Web server port")
		enableWeb   = flag.Bool("web", true, "Serve the web dashboard")
		noTUI       = flag.Bool("no-tui", false, "Do not draw the terminal view")
		samples     = flag.Int("samples", 500, "Number of points in the time grid over [0, 2π]")
		seed        = flag.Int64("seed", 0, "Noise seed (0 picks one from the clock)")
		droughtDir  = flag.String("drought-dir", "", "Directory of regional VHI files; empty disables the drought dashboard")
		natsURL     = flag.String("nats", "", "NATS url to publish frames to (empty disables)")
		natsSubject = flag.String("nats-subject", stream.DefaultSubject, "NATS subject for frames")
		natsZstd    = flag.Bool("nats-zstd", false, "Compress published JSON frames with zstd")
		width       = flag.Int("width", 80, "ASCII frame width")
		height      = flag.Int("height", 24, "ASCII frame height")
		targetFPS   = flag.Float64("fps", 20, "Terminal refresh rate")
		palette     = flag.String("palette", "default", "ASCII palette (default|blocks|dots)")
		showStatus  = flag.Bool("status", true, "Display status bar")
		noColor     = flag.Bool("no-color", false, "Disable ANSI color output")
		profilePath = flag.String("profile", "", "Append per-update timings to this CSV file")
		debug       = flag.Bool("debug", false, "Enable verbose development logging")
		logLevel    = flag.String("log-level", "info", "Log level (debug|info|warn|error)")
	)

	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var initial *params.Parameters
	if *configPath != "" {
		file, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			return 1
		}
		p, ok, err := file.Parameters()
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			return 1
		}
		if ok {
			initial = &p
		}
		overlay(set, file, port, samples, seed, palette, targetFPS, droughtDir, natsURL, natsSubject, logLevel)
	}

	level := *logLevel
	if *debug {
		level = "debug"
	}
	logger := logging.Must(
		logging.WithLevel(level),
		logging.WithDevelopment(*debug),
		logging.WithOutput("stderr"),
	)
	defer logger.Sync()

	switch {
	case *width <= 0 || *height <= 0:
		logger.Error("invalid dimensions", zap.Int("width", *width), zap.Int("height", *height))
		return 1
	case *targetFPS <= 0:
		logger.Error("fps must be positive", zap.Float64("fps", *targetFPS))
		return 1
	case *samples <= 0:
		logger.Error("samples must be positive", zap.Int("samples", *samples))
		return 1
	case *noTUI && !*enableWeb && *natsURL == "":
		logger.Error("nothing to run: enable -web, -nats or the terminal view")
		return 1
	}

	if fd := int(os.Stdout.Fd()); fd >= 0 {
		if w, h, err := term.GetSize(fd); err == nil {
			if w > 0 {
				*width = w
			}
			if h > 0 {
				*height = h
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var records []drought.Record
	if *droughtDir != "" {
		var err error
		records, err = drought.LoadDir(*droughtDir, logger.Named("drought"))
		if err != nil {
			logger.Error("failed to load drought data", zap.String("dir", *droughtDir), zap.Error(err))
			return 1
		}
	}

	a, err := app.New(app.Config{
		GridSize:      *samples,
		Seed:          *seed,
		FixedSeed:     *seed != 0,
		Initial:       initial,
		Width:         *width,
		Height:        *height,
		TargetFPS:     *targetFPS,
		ShowStatusBar: *showStatus,
		Palette:       *palette,
		UseANSI:       !*noColor,
		ProfilePath:   *profilePath,
		Log:           logger,
	})
	if err != nil {
		logger.Error("failed to create app", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	var (
		wg    sync.WaitGroup
		errCh = make(chan error, 3)
	)
	// launch starts fn in the background; the first failure cancels the rest.
	launch := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- err
				cancel()
			}
		}()
	}

	if *natsURL != "" {
		nc, err := stream.Connect(*natsURL)
		if err != nil {
			logger.Error("failed to connect to NATS", zap.String("url", *natsURL), zap.Error(err))
			return 1
		}
		defer nc.Drain()
		pub := stream.NewPublisher(nc, *natsSubject, logger.Named("stream"))
		if *natsZstd {
			if err := pub.EnableZstd(); err != nil {
				logger.Error("failed to enable frame compression", zap.Error(err))
				return 1
			}
		}
		defer pub.Close()
		frames, unsubscribe := a.Subscribe()
		launch(func() error {
			defer unsubscribe()
			pub.Run(ctx, frames)
			return nil
		})
		logger.Info("publishing frames", zap.String("url", *natsURL), zap.String("subject", pub.Subject()))
	}

	if *enableWeb {
		server := web.NewServer(a, records, logger.Named("web"))
		launch(func() error {
			return server.Start(ctx, *port)
		})
	}

	if !*noTUI {
		launch(func() error {
			// leaving the terminal view ends the whole process
			defer cancel()
			if err := a.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	wg.Wait()
	close(errCh)
	if err, ok := <-errCh; ok {
		logger.Error("runtime error", zap.Error(err))
		return 1
	}
	if !*noTUI {
		fmt.Println("\nExiting...")
	}
	return 0
}

// overlay copies settings from the file into every flag the user did not
// pass explicitly.
func overlay(set map[string]bool, f *config.File, port, samples *int, seed *int64, palette *string,
	fps *float64, droughtDir, natsURL, natsSubject, logLevel *string) {
	if !set["port"] && f.Port != 0 {
		*port = f.Port
	}
	if !set["samples"] && f.GridSize != 0 {
		*samples = f.GridSize
	}
	if !set["seed"] && f.Seed != nil {
		*seed = *f.Seed
	}
	if !set["palette"] && f.Palette != "" {
		*palette = f.Palette
	}
	if !set["fps"] && f.TargetFPS > 0 {
		*fps = f.TargetFPS
	}
	if !set["drought-dir"] && f.DroughtDir != "" {
		*droughtDir = f.DroughtDir
	}
	if !set["nats"] && f.NATSURL != "" {
		*natsURL = f.NATSURL
	}
	if !set["nats-subject"] && f.NATSSubject != "" {
		*natsSubject = f.NATSSubject
	}
	if !set["log-level"] && f.LogLevel != "" {
		*logLevel = f.LogLevel
	}
}
