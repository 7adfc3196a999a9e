package infra

import (
	"math"
	"testing"
)

func TestCPUResolver_ExactPoints(t *testing.T) {
	r := NewCPUResolver()

	expected := map[int]float64{
		128:   0.0625,
		256:   0.125,
		512:   0.25,
		1024:  0.5,
		1536:  0.75,
		2048:  1,
		3008:  1.5,
		4096:  2,
		5120:  2.5,
		6144:  3,
		7168:  3.5,
		8192:  4,
		9216:  4.5,
		10240: 5,
	}

	for ram, cpu := range expected {
		if got := r.Resolve(ram); got != cpu {
			t.Errorf("Resolve(%d) = %v, want %v", ram, got, cpu)
		}
	}
}

func TestCPUResolver_Interpolation(t *testing.T) {
	r := NewCPUResolver()

	tests := []struct {
		name string
		ram  int
		want float64
	}{
		// 1792 is midway between 1536 and 2048, so the result is midway
		// between 0.75 and 1.
		{"midpoint 1536-2048", 1792, 0.875},
		{"midpoint 128-256", 192, 0.09375},
		{"quarter into 2048-3008", 2288, 1.125},
		{"midpoint 9216-10240", 9728, 4.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.ram)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Resolve(%d) = %v, want %v", tt.ram, got, tt.want)
			}
		})
	}
}

func TestCPUResolver_Clamping(t *testing.T) {
	r := NewCPUResolver()

	if got := r.Resolve(64); got != r.Resolve(128) || got != 0.0625 {
		t.Errorf("Resolve(64) = %v, want clamp to 0.0625", got)
	}
	if got := r.Resolve(0); got != 0.0625 {
		t.Errorf("Resolve(0) = %v, want clamp to 0.0625", got)
	}
	if got := r.Resolve(20000); got != r.Resolve(10240) || got != 5 {
		t.Errorf("Resolve(20000) = %v, want clamp to 5", got)
	}
}

func TestCPUResolver_Monotonic(t *testing.T) {
	r := NewCPUResolver()

	prev := r.Resolve(0)
	for ram := 1; ram <= 11000; ram += 7 {
		got := r.Resolve(ram)
		if got < prev {
			t.Fatalf("Resolve not monotonic: Resolve(%d) = %v < previous %v", ram, got, prev)
		}
		prev = got
	}
}

func TestCPUResolver_Bounds(t *testing.T) {
	r := NewCPUResolver()

	if got := r.MinRAM(); got != 128 {
		t.Errorf("MinRAM() = %d, want 128", got)
	}
	if got := r.MaxRAM(); got != 10240 {
		t.Errorf("MaxRAM() = %d, want 10240", got)
	}
}
