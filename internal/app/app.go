package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/guidoenr/sigdash/internal/filter"
	"github.com/guidoenr/sigdash/internal/params"
	"github.com/guidoenr/sigdash/internal/render"
	"github.com/guidoenr/sigdash/internal/wave"
)

// Config configures the application runtime.
type Config struct {
	GridSize      int
	Seed          int64
	FixedSeed     bool
	Initial       *params.Parameters
	Width         int
	Height        int
	TargetFPS     float64
	ShowStatusBar bool
	Palette       string
	UseANSI       bool
	ProfilePath   string
	Log           *zap.Logger
}

// App is the single logical worker: it owns the parameter store and the
// time grid, and every change runs start to finish under one lock so units
// of work never interleave no matter which adapter raised them.
type App struct {
	cfg      Config
	log      *zap.Logger
	prof     *profiler
	renderer *render.Renderer

	mu     sync.Mutex
	store  *params.Store
	grid   []float64
	frame  Frame
	seq    uint64
	nextID int
	subs   map[int]chan Frame

	width        int
	height       int
	renderHeight int
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.GridSize <= 0 {
		cfg.GridSize = wave.DefaultGridSize
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 20
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	renderHeight := cfg.Height
	if cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	grid, err := wave.Grid(cfg.GridSize)
	if err != nil {
		return nil, fmt.Errorf("time grid: %w", err)
	}

	gen := wave.NewTimeSeededNoiseGenerator()
	if cfg.FixedSeed {
		gen = wave.NewNoiseGenerator(cfg.Seed)
	}
	store, err := params.NewStore(len(grid), gen)
	if err != nil {
		return nil, fmt.Errorf("parameter store: %w", err)
	}
	if cfg.Initial != nil {
		if _, err := store.Apply(*cfg.Initial); err != nil {
			return nil, fmt.Errorf("initial parameters: %w", err)
		}
	}

	renderer, err := render.New(cfg.Width, renderHeight, cfg.Palette, cfg.UseANSI)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:          cfg,
		log:          cfg.Log.Named("app"),
		renderer:     renderer,
		store:        store,
		grid:         grid,
		subs:         make(map[int]chan Frame),
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
	}
	a.prof = newProfiler(cfg.ProfilePath, a.log)

	frame, err := Compute(grid, store.Get(), store.Noise())
	if err != nil {
		return nil, fmt.Errorf("initial frame: %w", err)
	}
	a.commit(frame)

	a.log.Info("signal demo ready",
		zap.Int("samples", len(grid)),
		zap.Int64("seed", gen.Seed()),
		zap.Float64("samplingRate", frame.SamplingRate),
	)
	return a, nil
}

// Params returns the current parameter set.
func (a *App) Params() params.Parameters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Get()
}

// Frame returns the most recently computed frame.
func (a *App) Frame() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame
}

// Set changes one field and recomputes. An invalid value, or one the
// filter cannot work with, is rejected before anything is stored.
func (a *App) Set(field params.Field, value any) (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prof.begin("set")
	defer a.prof.end()

	next, err := a.store.Get().With(field, value)
	if err != nil {
		return a.frame, err
	}
	frame, err := Compute(a.grid, next, a.store.Noise())
	if err != nil {
		return a.frame, err
	}
	a.prof.mark("validate")

	regenerate, err := a.store.Set(field, value)
	if err != nil {
		return a.frame, err
	}
	if regenerate {
		if err := a.store.RegenerateNoise(); err != nil {
			return a.frame, err
		}
		a.prof.mark("noise")
		if frame, err = Compute(a.grid, a.store.Get(), a.store.Noise()); err != nil {
			return a.frame, err
		}
	}
	a.prof.mark("compute")

	a.log.Debug("parameter set", zap.String("field", string(field)), zap.Any("value", value), zap.Bool("noise", regenerate))
	return a.commit(frame), nil
}

// Update replaces the whole parameter set.
func (a *App) Update(p params.Parameters) (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prof.begin("update")
	defer a.prof.end()

	if _, err := Compute(a.grid, p, a.store.Noise()); err != nil {
		return a.frame, err
	}
	regenerated, err := a.store.Apply(p)
	if err != nil {
		return a.frame, err
	}
	frame, err := Compute(a.grid, a.store.Get(), a.store.Noise())
	if err != nil {
		return a.frame, err
	}
	a.prof.mark("compute")

	a.log.Debug("parameters updated", zap.Bool("noise", regenerated))
	return a.commit(frame), nil
}

// Reset restores all defaults, redraws the noise and recomputes.
func (a *App) Reset() (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prof.begin("reset")
	defer a.prof.end()

	p, err := a.store.Reset()
	if err != nil {
		return a.frame, err
	}
	frame, err := Compute(a.grid, p, a.store.Noise())
	if err != nil {
		return a.frame, err
	}
	a.prof.mark("compute")

	a.log.Info("parameters reset")
	return a.commit(frame), nil
}

// Subscribe delivers every committed frame. Slow subscribers only ever see
// the latest frame. The returned func unsubscribes and closes the channel.
func (a *App) Subscribe() (<-chan Frame, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	ch := make(chan Frame, 1)
	ch <- a.frame
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
			close(ch)
		})
	}
}

// commit expects a.mu to be held.
func (a *App) commit(frame Frame) Frame {
	a.seq++
	frame.Seq = a.seq
	a.frame = frame
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- frame
	}
	return frame
}

// Close releases held resources.
func (a *App) Close() error {
	return a.prof.Close()
}

// Run drives the terminal front end until ctx is cancelled or the user quits.
func (a *App) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	enterAltScreen()
	clearScreen()
	hideCursor()
	defer func() {
		showCursor()
		exitAltScreen()
	}()

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	events := a.startInputListener(inputCtx)
	a.ensureDimensions()

	var drawn uint64
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			moveCursorHome()
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if evt.quit {
				moveCursorHome()
				return nil
			}
			a.handleInput(evt)
		case now := <-ticker.C:
			resized := a.ensureDimensions()
			frame := a.Frame()
			if frame.Seq == drawn && !resized {
				continue
			}
			delta := now.Sub(last).Seconds()
			last = now
			fps := 0.0
			if delta > 0 {
				fps = 1.0 / delta
			}
			a.draw(frame, fps)
			drawn = frame.Seq
		}
	}
}

func (a *App) draw(frame Frame, fps float64) {
	out := a.renderer.Render(frame.Params, frame.Raw, frame.Filtered, fps)
	moveCursorHome()
	for _, line := range out.Lines {
		fmt.Println(line)
	}
	if a.cfg.ShowStatusBar {
		fmt.Println(statusBar(out.Status, a.width))
	}
}

func (a *App) ensureDimensions() bool {
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return false
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return false
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return false
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
	clearScreen()
	return true
}

// inputEvent is one key press translated into a store operation.
type inputEvent struct {
	field  params.Field
	delta  float64
	toggle bool
	cycle  bool
	reset  bool
	quit   bool
}

var keyBindings = map[rune]inputEvent{
	'a': {field: params.FieldAmplitude, delta: -0.1},
	'A': {field: params.FieldAmplitude, delta: 0.1},
	'f': {field: params.FieldFrequency, delta: -0.1},
	'F': {field: params.FieldFrequency, delta: 0.1},
	'p': {field: params.FieldPhase, delta: -0.1},
	'P': {field: params.FieldPhase, delta: 0.1},
	'm': {field: params.FieldNoiseMean, delta: -0.05},
	'M': {field: params.FieldNoiseMean, delta: 0.05},
	's': {field: params.FieldNoiseStd, delta: -0.05},
	'S': {field: params.FieldNoiseStd, delta: 0.05},
	'w': {field: params.FieldFilterWindow, delta: -1},
	'W': {field: params.FieldFilterWindow, delta: 1},
	'g': {field: params.FieldFilterSigma, delta: -0.1},
	'G': {field: params.FieldFilterSigma, delta: 0.1},
	'n': {field: params.FieldShowNoise, toggle: true},
	'N': {field: params.FieldShowNoise, toggle: true},
	't': {field: params.FieldFilterKind, cycle: true},
	'T': {field: params.FieldFilterKind, cycle: true},
	'r': {reset: true},
	'R': {reset: true},
	'q': {quit: true},
	'Q': {quit: true},
}

func (a *App) startInputListener(ctx context.Context) <-chan inputEvent {
	if err := keyboard.Open(); err != nil {
		a.log.Warn("keyboard input disabled", zap.Error(err))
		return nil
	}

	events := make(chan inputEvent, 16)

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			if key == keyboard.KeyEsc || key == keyboard.KeyCtrlC {
				events <- inputEvent{quit: true}
				return
			}
			evt, ok := keyBindings[char]
			if !ok {
				continue
			}
			if evt.quit {
				events <- evt
				return
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()
	return events
}

func (a *App) handleInput(evt inputEvent) {
	if evt.reset {
		if _, err := a.Reset(); err != nil {
			a.log.Warn("reset failed", zap.Error(err))
		}
		return
	}

	current := a.Params()
	var value any
	switch {
	case evt.toggle:
		value = !current.ShowNoise
	case evt.cycle:
		value = nextKind(current.Filter.Kind)
	default:
		value = fieldValue(current, evt.field) + evt.delta
	}
	if _, err := a.Set(evt.field, value); err != nil {
		a.log.Debug("key ignored", zap.String("field", string(evt.field)), zap.Error(err))
	}
}

func fieldValue(p params.Parameters, field params.Field) float64 {
	switch field {
	case params.FieldAmplitude:
		return p.Amplitude
	case params.FieldFrequency:
		return p.Frequency
	case params.FieldPhase:
		return p.Phase
	case params.FieldNoiseMean:
		return p.NoiseMean
	case params.FieldNoiseStd:
		return p.NoiseStd
	case params.FieldFilterWindow:
		return float64(p.Filter.WindowSize())
	case params.FieldFilterSigma:
		return p.Filter.Sigma
	default:
		return 0
	}
}

func nextKind(current filter.Kind) string {
	kinds := filter.Kinds()
	for i, k := range kinds {
		if k == string(current) {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return kinds[0]
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}
