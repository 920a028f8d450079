package app

import (
	"errors"
	"math"
	"testing"

	"github.com/guidoenr/sigdash/internal/filter"
	"github.com/guidoenr/sigdash/internal/params"
	"github.com/guidoenr/sigdash/internal/testutil"
	"github.com/guidoenr/sigdash/internal/wave"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{GridSize: 500, Seed: 11, FixedSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestComputeEndToEndPureSine(t *testing.T) {
	grid, _ := wave.Grid(500)
	p := params.Defaults()
	p.ShowNoise = false
	p.Filter = filter.Spec{Kind: filter.KindMovingAverage, Sigma: 2, Window: 1}

	frame, err := Compute(grid, p, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := make([]float64, len(grid))
	for i, v := range grid {
		want[i] = math.Sin(v)
	}
	testutil.RequireSliceNearlyEqual(t, frame.Raw, want, 1e-9)
	testutil.RequireSliceEqual(t, frame.Filtered, frame.Raw)
	if frame.Cutoff != 0 {
		t.Fatalf("cutoff should only be reported for the butterworth filter")
	}
}

func TestComputeButterworthReportsCutoff(t *testing.T) {
	grid, _ := wave.Grid(500)
	p := params.Defaults()
	p.Filter.Kind = filter.KindButterworth
	p.Filter.Window = 1
	frame, err := Compute(grid, p, make([]float64, 500))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if frame.Cutoff > 0.99*frame.SamplingRate/2+1e-12 {
		t.Fatalf("cutoff %v exceeds clamp for fs %v", frame.Cutoff, frame.SamplingRate)
	}
}

func TestComputeRejectsButterworthOnSinglePointGrid(t *testing.T) {
	p := params.Defaults()
	p.Filter.Kind = filter.KindButterworth
	if _, err := Compute([]float64{0}, p, []float64{0}); !errors.Is(err, wave.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetKeepsNoiseForUnrelatedFields(t *testing.T) {
	a := newTestApp(t)
	before := a.Frame()
	frame, err := a.Set(params.FieldAmplitude, 2.0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if frame.Seq != before.Seq+1 {
		t.Fatalf("seq=%d want=%d", frame.Seq, before.Seq+1)
	}
	pureBefore, _ := Compute(before.Time, withoutNoise(before.Params), nil)
	pureAfter, _ := Compute(frame.Time, withoutNoise(frame.Params), nil)
	for i := range frame.Raw {
		noiseBefore := before.Raw[i] - pureBefore.Raw[i]
		noiseAfter := frame.Raw[i] - pureAfter.Raw[i]
		if math.Abs(noiseBefore-noiseAfter) > 1e-12 {
			t.Fatalf("index %d: noise changed from %v to %v", i, noiseBefore, noiseAfter)
		}
	}
}

func withoutNoise(p params.Parameters) params.Parameters {
	p.ShowNoise = false
	return p
}

func TestSetNoiseStdRegenerates(t *testing.T) {
	a := newTestApp(t)
	frame, err := a.Set(params.FieldNoiseStd, 0.0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	pure, _ := Compute(frame.Time, withoutNoise(frame.Params), nil)
	testutil.RequireSliceNearlyEqual(t, frame.Raw, pure.Raw, 1e-12)
}

func TestSetRejectsInvalidWithoutChanges(t *testing.T) {
	a := newTestApp(t)
	before := a.Frame()
	if _, err := a.Set(params.FieldFrequency, -2.0); !errors.Is(err, wave.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	after := a.Frame()
	if after.Seq != before.Seq || after.Params != before.Params {
		t.Fatalf("failed set changed state")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	a := newTestApp(t)
	_, _ = a.Set(params.FieldFilterKind, "BW")
	_, _ = a.Set(params.FieldPhase, 1.0)
	first, err := a.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	second, err := a.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if first.Params != params.Defaults() || second.Params != params.Defaults() {
		t.Fatalf("reset did not restore defaults")
	}
	if len(first.Raw) != len(second.Raw) {
		t.Fatalf("reset changed signal length")
	}
}

func TestUpdateAppliesWholeSet(t *testing.T) {
	a := newTestApp(t)
	p := params.Defaults()
	p.Frequency = 3
	p.Filter = filter.Spec{Kind: filter.KindGaussian, Sigma: 4, Window: 10}
	frame, err := a.Update(p)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if frame.Params != p {
		t.Fatalf("params=%+v want=%+v", frame.Params, p)
	}
	p.Amplitude = -1
	if _, err := a.Update(p); !errors.Is(err, wave.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubscribeReceivesLatestFrame(t *testing.T) {
	a := newTestApp(t)
	ch, cancel := a.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.Seq != a.Frame().Seq {
		t.Fatalf("initial seq=%d want=%d", initial.Seq, a.Frame().Seq)
	}
	_, _ = a.Set(params.FieldAmplitude, 2.0)
	_, _ = a.Set(params.FieldAmplitude, 3.0)
	latest := <-ch
	if latest.Params.Amplitude != 3.0 {
		t.Fatalf("expected only the latest frame, got amplitude %v", latest.Params.Amplitude)
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
}

func TestNextKindCycles(t *testing.T) {
	seen := map[string]bool{}
	kind := filter.KindMovingAverage
	for i := 0; i < 3; i++ {
		next := nextKind(kind)
		seen[next] = true
		kind = filter.Kind(next)
	}
	if len(seen) != 3 {
		t.Fatalf("cycle visited %v", seen)
	}
}

func TestStatusBar(t *testing.T) {
	if got := statusBar("abc", 5); got != "abc  " {
		t.Fatalf("statusBar pad=%q", got)
	}
	if got := statusBar("abcdef", 3); got != "abc" {
		t.Fatalf("statusBar trim=%q", got)
	}
}
