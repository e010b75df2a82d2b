package envelope

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestMap_EvenSpacing(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		start := rng.Float64() * 10
		end := start + 0.01 + rng.Float64()*5
		n := 1 + rng.Intn(MaxSamples)

		samples := make([]uint16, n)
		for i := range samples {
			samples[i] = uint16(rng.Intn(math.MaxUint16 + 1))
		}

		points, err := Map(samples, start, end)
		if err != nil {
			t.Fatalf("Map(n=%d, %g, %g) failed: %v", n, start, end, err)
		}
		if len(points) != n {
			t.Fatalf("got %d points, want %d", len(points), n)
		}
		if points[0].Distance != start {
			t.Fatalf("first distance = %g, want %g", points[0].Distance, start)
		}

		step := (end - start) / float64(n)
		for i, p := range points {
			if want := start + step*float64(i); p.Distance != want {
				t.Fatalf("distance[%d] = %g, want %g", i, p.Distance, want)
			}
			if p.Amplitude != float64(samples[i]) {
				t.Fatalf("amplitude[%d] = %g, want %d", i, p.Amplitude, samples[i])
			}
			if i > 0 {
				if p.Distance <= points[i-1].Distance {
					t.Fatalf("distances not strictly increasing at %d: %g <= %g", i, p.Distance, points[i-1].Distance)
				}
				if gap := p.Distance - points[i-1].Distance; math.Abs(gap-step) > 1e-9 {
					t.Fatalf("spacing at %d = %g, want %g", i, gap, step)
				}
			}
		}
	}
}

func TestMap_Errors(t *testing.T) {
	tests := []struct {
		name       string
		samples    []uint16
		start, end float64
		want       error
	}{
		{"empty", nil, 0.1, 0.5, ErrEmpty},
		{"reversed", []uint16{1}, 0.5, 0.1, ErrInvalidRange},
		{"zero length", []uint16{1}, 0.5, 0.5, ErrInvalidRange},
		{"nan", []uint16{1}, math.NaN(), 0.5, ErrInvalidRange},
		{"inf", []uint16{1}, 0.1, math.Inf(1), ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Map(tt.samples, tt.start, tt.end); !errors.Is(err, tt.want) {
				t.Errorf("Map() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBound(t *testing.T) {
	short := make([]uint16, 10)
	got, dropped := Bound(short)
	if len(got) != 10 || dropped != 0 {
		t.Errorf("Bound(10) = len %d dropped %d, want 10, 0", len(got), dropped)
	}

	long := make([]uint16, MaxSamples+25)
	got, dropped = Bound(long)
	if len(got) != MaxSamples || dropped != 25 {
		t.Errorf("Bound(%d) = len %d dropped %d, want %d, 25", len(long), len(got), dropped, MaxSamples)
	}
}

func TestMeanAmplitude_Constant(t *testing.T) {
	for _, n := range []int{1, 2, 7, 1000} {
		points := make([]Datapoint, n)
		for i := range points {
			points[i] = Datapoint{Distance: float64(i), Amplitude: 321}
		}
		mean, err := MeanAmplitude(points)
		if err != nil {
			t.Fatalf("MeanAmplitude(n=%d) failed: %v", n, err)
		}
		if mean != 321 {
			t.Errorf("MeanAmplitude(n=%d) = %g, want 321", n, mean)
		}
	}
}

func TestMeanAmplitude_Mixed(t *testing.T) {
	points := []Datapoint{{0, 10}, {1, 20}, {2, 15}, {3, 5}, {4, 8}}
	mean, err := MeanAmplitude(points)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mean-11.6) > 1e-12 {
		t.Errorf("mean = %g, want 11.6", mean)
	}
}

func TestMeanAmplitude_Empty(t *testing.T) {
	if _, err := MeanAmplitude(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestPeak(t *testing.T) {
	t.Run("unique maximum", func(t *testing.T) {
		points := []Datapoint{{0.1, 3}, {0.2, 9}, {0.3, 4}}
		got, err := Peak(points)
		if err != nil {
			t.Fatal(err)
		}
		if got != points[1] {
			t.Errorf("Peak() = %+v, want %+v", got, points[1])
		}
	})

	t.Run("tied maxima keep the first", func(t *testing.T) {
		points := []Datapoint{{0.1, 3}, {0.2, 9}, {0.3, 9}, {0.4, 1}}
		got, err := Peak(points)
		if err != nil {
			t.Fatal(err)
		}
		if got.Distance != 0.2 {
			t.Errorf("Peak() distance = %g, want 0.2", got.Distance)
		}
	})

	t.Run("zero amplitudes", func(t *testing.T) {
		points := []Datapoint{{0.1, 0}, {0.2, 0}}
		got, err := Peak(points)
		if err != nil {
			t.Fatal(err)
		}
		if got != points[0] {
			t.Errorf("Peak() = %+v, want %+v", got, points[0])
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := Peak(nil); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})
}
