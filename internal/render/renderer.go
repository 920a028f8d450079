package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/guidoenr/sigdash/internal/params"
)

// Renderer turns a raw/filtered signal pair into two stacked ASCII charts.
type Renderer struct {
	width         int
	height        int
	palette       []rune
	useANSI       bool
	statusBuilder strings.Builder
}

// Frame contains the rendered ASCII lines and optional status text.
type Frame struct {
	Lines  []string
	Status string
}

const (
	rawColor      = 208
	filteredColor = 45
	axisRune      = '-'
)

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer.
func New(width, height int, paletteName string, useANSI bool) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", width, height)
	}
	r := &Renderer{
		width:   width,
		height:  height,
		useANSI: useANSI,
	}
	r.Configure(paletteName)
	return r, nil
}

// Configure switches the shading palette.
func (r *Renderer) Configure(paletteName string) {
	if paletteName == "" {
		paletteName = "default"
	}
	r.palette = Palette(paletteName)
}

// Resize updates the framebuffer dimensions; non-positive values are ignored.
func (r *Renderer) Resize(width, height int) {
	if width > 0 {
		r.width = width
	}
	if height > 0 {
		r.height = height
	}
}

// Render draws raw above filtered, both on the same vertical scale so the
// smoothing is visible, and builds a status line from p.
func (r *Renderer) Render(p params.Parameters, raw, filtered []float64, fps float64) Frame {
	if r.width <= 0 || r.height <= 0 {
		return Frame{}
	}

	panelRows := (r.height - 2) / 2
	if panelRows < 1 {
		panelRows = 1
	}
	lo, hi := bounds(raw, filtered)

	var (
		wg          sync.WaitGroup
		rawLines    []string
		filterLines []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rawLines = r.panel(raw, lo, hi, panelRows, rawColor)
	}()
	go func() {
		defer wg.Done()
		filterLines = r.panel(filtered, lo, hi, panelRows, filteredColor)
	}()
	wg.Wait()

	lines := make([]string, 0, 2*panelRows+2)
	lines = append(lines, r.title("raw signal", lo, hi))
	lines = append(lines, rawLines...)
	lines = append(lines, r.title("filtered ("+string(p.Filter.Kind)+")", lo, hi))
	lines = append(lines, filterLines...)
	if len(lines) > r.height {
		lines = lines[:r.height]
	}

	return Frame{
		Lines:  lines,
		Status: r.buildStatus(p, fps),
	}
}

func (r *Renderer) title(label string, lo, hi float64) string {
	var b strings.Builder
	b.WriteString("== ")
	b.WriteString(label)
	b.WriteString(" [")
	appendFloat(&b, lo, 2)
	b.WriteString(", ")
	appendFloat(&b, hi, 2)
	b.WriteString("] ")
	return padRight(b.String(), r.width, '=')
}

// panel bins samples into width columns and rows cells; each cell's glyph
// reflects how many samples fell into it relative to the busiest cell.
func (r *Renderer) panel(values []float64, lo, hi float64, rows int, color int) []string {
	width := r.width
	counts := make([][]int, rows)
	for y := range counts {
		counts[y] = make([]int, width)
	}

	n := len(values)
	span := hi - lo
	maxCount := 0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		x := i * width / n
		y := rowFor(v, lo, span, rows)
		counts[y][x]++
		if counts[y][x] > maxCount {
			maxCount = counts[y][x]
		}
	}

	axisRow := -1
	if lo <= 0 && hi >= 0 {
		axisRow = rowFor(0, lo, span, rows)
	}

	lines := make([]string, rows)
	shades := len(r.palette) - 1
	for y := 0; y < rows; y++ {
		var b strings.Builder
		b.Grow(width * 4)
		if r.useANSI {
			b.WriteString(colorCode(color))
		}
		for x := 0; x < width; x++ {
			c := counts[y][x]
			switch {
			case c > 0:
				idx := 1 + int(float64(c)/float64(maxCount)*float64(shades-1)+0.5)
				b.WriteRune(r.palette[clampInt(idx, 1, shades)])
			case y == axisRow:
				b.WriteRune(axisRune)
			default:
				b.WriteRune(r.palette[0])
			}
		}
		if r.useANSI {
			b.WriteString(resetANSI)
		}
		lines[y] = b.String()
	}
	return lines
}

func rowFor(v, lo, span float64, rows int) int {
	if rows <= 1 || span <= 0 {
		return 0
	}
	frac := (v - lo) / span
	return clampInt(rows-1-int(frac*float64(rows-1)+0.5), 0, rows-1)
}

// bounds returns a shared finite range covering every series, padded when flat.
func bounds(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return -1, 1
	}
	if hi-lo < 1e-12 {
		return lo - 1, hi + 1
	}
	return lo, hi
}

func (r *Renderer) buildStatus(p params.Parameters, fps float64) string {
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(160)
	builder.WriteString("amp ")
	appendFloat(builder, p.Amplitude, 2)
	builder.WriteString(" freq ")
	appendFloat(builder, p.Frequency, 2)
	builder.WriteString(" phase ")
	appendFloat(builder, p.Phase, 2)
	if p.ShowNoise {
		builder.WriteString(" | noise on")
	} else {
		builder.WriteString(" | noise off")
	}
	builder.WriteString(" mean ")
	appendFloat(builder, p.NoiseMean, 2)
	builder.WriteString(" std ")
	appendFloat(builder, p.NoiseStd, 2)
	builder.WriteString(" | ")
	builder.WriteString(string(p.Filter.Kind))
	builder.WriteString(" window ")
	builder.WriteString(strconv.Itoa(p.Filter.WindowSize()))
	builder.WriteString(" sigma ")
	appendFloat(builder, p.Filter.Sigma, 1)
	builder.WriteString(" | fps ")
	appendFloat(builder, fps, 1)
	return builder.String()
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func padRight(s string, width int, fill rune) string {
	n := len([]rune(s))
	if n >= width {
		return string([]rune(s)[:width])
	}
	return s + strings.Repeat(string(fill), width-n)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}
