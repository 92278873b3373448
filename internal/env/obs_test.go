package env

import (
	"math"
	"testing"

	"github.com/aerobench/quadsim/internal/quad"
)

func TestObservationLengths(t *testing.T) {
	base := quad.State{Rotation: quad.QuatIdentity}
	modes := []struct {
		mode RotationMode
		n    int
	}{
		{RotMatGlobal, 9},
		{RotMatLocal, 9},
		{RotMatLocalPartial, 9},
		{EulerGlobal, 3},
		{EulerLocal, 3},
		{EulerLocalPartial, 2},
		{RotDirect, 4},
	}
	for _, tc := range modes {
		cfg := DefaultObservationConfig()
		cfg.RotationMode = tc.mode
		cfg.RotorSpeedScale = 0.01
		cfg.DtScale = 1
		cfg.AgeScale = 1
		m, err := NewObservationMap(cfg)
		if err != nil {
			t.Fatalf("%s: NewObservationMap: %v", tc.mode, err)
		}
		want := 3 + 3 + tc.n + 3 + 4 + 1 + 1
		if got := m.Len(); got != want {
			t.Errorf("%s: Len = %d, want %d", tc.mode, got, want)
		}
		if got := len(m.Observe(base, 0.01, 0.02)); got != want {
			t.Errorf("%s: observation length %d, want %d", tc.mode, got, want)
		}
	}

	if _, err := NewObservationMap(ObservationConfig{RotationMode: "axis_angle"}); err == nil {
		t.Error("NewObservationMap accepted unknown rotation mode")
	}
}

func TestObservationScalingAndOffsets(t *testing.T) {
	cfg := ObservationConfig{
		PositionScale: 2,
		VelocityScale: 1,
	}
	m, err := NewObservationMap(cfg)
	if err != nil {
		t.Fatalf("NewObservationMap: %v", err)
	}
	m.PositionOffset = quad.Vec3{X: 1}

	s := quad.State{
		Position: quad.Vec3{X: 3, Y: -1, Z: 0.5},
		Velocity: quad.Vec3{X: 0.25, Y: 0, Z: -4},
		Rotation: quad.QuatIdentity,
	}
	got := m.Observe(s, 0, 0)
	want := []float64{4, -2, 1, 0.25, 0, -4}
	if len(got) != len(want) {
		t.Fatalf("observation length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("observation[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestObservationLocalFrame(t *testing.T) {
	// Yawed 90° the world x axis appears along the body's -y axis.
	cfg := ObservationConfig{Local: true, PositionScale: 1}
	m, err := NewObservationMap(cfg)
	if err != nil {
		t.Fatalf("NewObservationMap: %v", err)
	}

	s := quad.State{
		Position: quad.Vec3{X: 1},
		Rotation: quad.QuatExp(quad.Vec3{Z: math.Pi / 4}),
	}
	got := m.Observe(s, 0, 0)
	want := []float64{0, -1, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("local observation[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestObservationHuberScaling(t *testing.T) {
	cfg := ObservationConfig{PositionScale: 1, HuberScaling: true}
	m, err := NewObservationMap(cfg)
	if err != nil {
		t.Fatalf("NewObservationMap: %v", err)
	}

	s := quad.State{Position: quad.Vec3{X: 8, Y: -8, Z: 0.02}, Rotation: quad.QuatIdentity}
	got := m.Observe(s, 0, 0)

	// Past the crossover the loss is linear: 8/2 + 1 = 5.
	if math.Abs(got[0]-5) > 1e-12 || math.Abs(got[1]+5) > 1e-12 {
		t.Errorf("huber-scaled large components = %v, %v, want 5, -5", got[0], got[1])
	}
	// Near zero it is the square root branch: sqrt(0.04) = 0.2.
	if math.Abs(got[2]-0.2) > 1e-12 {
		t.Errorf("huber-scaled small component = %v, want 0.2", got[2])
	}
}

func TestInvertedHuber(t *testing.T) {
	cases := []struct{ x, want float64 }{
		{0, 0},
		{0.02, 0.2},
		{-0.02, -0.2},
		{2, 2},
		{8, 5},
		{-8, -5},
	}
	for _, tc := range cases {
		if got := invertedHuber(tc.x); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("invertedHuber(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
}
