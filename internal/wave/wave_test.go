package wave

import (
	"errors"
	"math"
	"testing"

	"github.com/guidoenr/sigdash/internal/testutil"
	"gonum.org/v1/gonum/stat"
)

func TestGridEndpoints(t *testing.T) {
	grid, err := Grid(DefaultGridSize)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if len(grid) != DefaultGridSize {
		t.Fatalf("len=%d want=%d", len(grid), DefaultGridSize)
	}
	if grid[0] != 0 || grid[len(grid)-1] != 2*math.Pi {
		t.Fatalf("endpoints=%v,%v", grid[0], grid[len(grid)-1])
	}
}

func TestLinspaceRejectsEmpty(t *testing.T) {
	if _, err := Linspace(0, 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	one, err := Linspace(3, 7, 1)
	if err != nil || len(one) != 1 || one[0] != 3 {
		t.Fatalf("single point grid=%v err=%v", one, err)
	}
}

func TestSamplingRate(t *testing.T) {
	grid, _ := Grid(500)
	fs, err := SamplingRate(grid)
	if err != nil {
		t.Fatalf("SamplingRate: %v", err)
	}
	want := 499 / (2 * math.Pi)
	if math.Abs(fs-want) > 1e-9 {
		t.Fatalf("fs=%v want=%v", fs, want)
	}
	if _, err := SamplingRate(grid[:1]); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for single point, got %v", err)
	}
}

func TestGeneratePureSine(t *testing.T) {
	grid, _ := Grid(500)
	raw, err := Generate(grid, 1, 1, 0, nil, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := make([]float64, len(grid))
	for i, v := range grid {
		want[i] = math.Sin(2 * math.Pi * v)
	}
	testutil.RequireSliceNearlyEqual(t, raw, want, 1e-12)
}

func TestGenerateIgnoresNoiseWhenHidden(t *testing.T) {
	grid, _ := Grid(64)
	noise := make([]float64, 3) // wrong length is fine when hidden
	a, err := Generate(grid, 2.5, 0.7, 1.2, noise, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := Generate(grid, 2.5, 0.7, 1.2, nil, false)
	testutil.RequireSliceEqual(t, a, b)
}

func TestGenerateAddsNoise(t *testing.T) {
	grid, _ := Grid(128)
	noise, err := NewNoiseGenerator(7).Sample(len(grid), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	pure, _ := Generate(grid, 1.5, 2, 0.25, nil, false)
	noisy, err := Generate(grid, 1.5, 2, 0.25, noise, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := range noisy {
		if math.Abs(noisy[i]-(pure[i]+noise[i])) > 1e-12 {
			t.Fatalf("index %d: noisy=%v pure+noise=%v", i, noisy[i], pure[i]+noise[i])
		}
	}
}

func TestGenerateLengthMismatch(t *testing.T) {
	grid, _ := Grid(10)
	if _, err := Generate(grid, 1, 1, 0, make([]float64, 9), true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNoiseSampleStatistics(t *testing.T) {
	noise, err := NewNoiseGenerator(42).Sample(20000, 0.5, 0.2)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if m := stat.Mean(noise, nil); math.Abs(m-0.5) > 0.01 {
		t.Fatalf("mean=%v want≈0.5", m)
	}
	if s := stat.StdDev(noise, nil); math.Abs(s-0.2) > 0.01 {
		t.Fatalf("std=%v want≈0.2", s)
	}
}

func TestNoiseZeroStdIsConstant(t *testing.T) {
	noise, err := NewNoiseGenerator(1).Sample(50, -0.25, 0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for i, v := range noise {
		if v != -0.25 {
			t.Fatalf("index %d: %v want -0.25", i, v)
		}
	}
}

func TestNoiseSeedIsReproducible(t *testing.T) {
	a, _ := NewNoiseGenerator(99).Sample(32, 0, 1)
	b, _ := NewNoiseGenerator(99).Sample(32, 0, 1)
	testutil.RequireSliceEqual(t, a, b)
}

func TestNoiseRejectsInvalidInput(t *testing.T) {
	gen := NewNoiseGenerator(1)
	cases := []struct {
		name   string
		length int
		mean   float64
		std    float64
	}{
		{"negative std", 10, 0, -0.1},
		{"negative length", -1, 0, 0.1},
		{"nan mean", 10, math.NaN(), 0.1},
		{"inf std", 10, 0, math.Inf(1)},
	}
	for _, tc := range cases {
		if _, err := gen.Sample(tc.length, tc.mean, tc.std); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}
