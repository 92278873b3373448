package quad

import (
	"math"
	"testing"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(DefaultParams())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestNewModelValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero gravity", func(p *Params) { p.Gravity = 0 }},
		{"negative mass", func(p *Params) { p.Mass = -1 }},
		{"zero inertia component", func(p *Params) { p.Inertia.Y = 0 }},
		{"negative arm length", func(p *Params) { p.ArmLength = -0.16 }},
		{"zero thrust coefficient", func(p *Params) { p.ThrustCoeff = 0 }},
		{"rotor inertia at one", func(p *Params) { p.RotorInertia = 1 }},
		{"negative drag coefficient", func(p *Params) { p.DragCoeff = -4.82e-8 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			if _, err := NewModel(p); err == nil {
				t.Errorf("NewModel accepted invalid params %+v", p)
			}
		})
	}

	if _, err := NewModel(DefaultParams()); err != nil {
		t.Errorf("NewModel rejected default params: %v", err)
	}
}

func TestHoverEquilibrium(t *testing.T) {
	m := newTestModel(t)
	hover := m.HoverSpeed()
	cmd := RotorSpeeds{hover, hover, hover, hover}

	x := State{Rotation: QuatIdentity, RotorSpeed: cmd}
	for i := 0; i < 200; i++ {
		x = m.NextState(x, cmd, 0.01)
	}

	if d := x.Position.Norm(); d > 1e-6 {
		t.Errorf("hovering vehicle drifted %v m from origin", d)
	}
	if v := x.Velocity.Norm(); v > 1e-6 {
		t.Errorf("hovering vehicle reached velocity %v", v)
	}
	if w := x.AngularVelocity.Norm(); w > 1e-9 {
		t.Errorf("hovering vehicle picked up angular velocity %v", w)
	}
	if x.Rotation.Mul(QuatIdentity.Conj()).W < 1-1e-12 {
		t.Errorf("hovering vehicle rotated to %+v", x.Rotation)
	}
}

func TestFreeFall(t *testing.T) {
	m := newTestModel(t)
	g := m.Params().Gravity

	// No rotor speed means no thrust; the vehicle accelerates straight
	// down (+z) under gravity alone.
	x := m.NextState(State{Rotation: QuatIdentity}, RotorSpeeds{}, 1)

	if math.Abs(x.Velocity.Z-g) > 1e-9 {
		t.Errorf("velocity after 1 s of free fall = %v, want %v", x.Velocity.Z, g)
	}
	if math.Abs(x.Position.Z-g/2) > 1e-9 {
		t.Errorf("position after 1 s of free fall = %v, want %v", x.Position.Z, g/2)
	}
	if x.Position.X != 0 || x.Position.Y != 0 {
		t.Errorf("free fall moved laterally to %+v", x.Position)
	}
}

func TestStepSizeIndependence(t *testing.T) {
	m := newTestModel(t)

	// Constant-input flight segments solve in closed form, so one large
	// step must land where a chain of small steps lands.
	start := State{Rotation: QuatIdentity, Velocity: Vec3{1, 0, 0}}
	cmd := RotorSpeeds{}

	one := m.NextState(start, cmd, 1)
	many := start
	for i := 0; i < 10; i++ {
		many = m.NextState(many, cmd, 0.1)
	}

	if d := one.Position.Sub(many.Position).Norm(); d > 1e-9 {
		t.Errorf("position differs by %v between one step and ten", d)
	}
	if d := one.Velocity.Sub(many.Velocity).Norm(); d > 1e-9 {
		t.Errorf("velocity differs by %v between one step and ten", d)
	}
}

func TestRotorSpinUp(t *testing.T) {
	m := newTestModel(t)
	cmd := RotorSpeeds{400, 400, 400, 400}

	// Over a full second the first-order lag has fully converged.
	x := m.NextState(State{Rotation: QuatIdentity}, cmd, 1)
	for i, w := range x.RotorSpeed {
		if math.Abs(w-400) > 1e-5 {
			t.Errorf("rotor %d at %v after 1 s, want 400", i, w)
		}
	}

	// Over a short step the speed lies strictly between start and command.
	x = m.NextState(State{Rotation: QuatIdentity}, cmd, 0.001)
	for i, w := range x.RotorSpeed {
		if w <= 0 || w >= 400 {
			t.Errorf("rotor %d at %v after short step, want within (0, 400)", i, w)
		}
	}
}

func TestRotationUnderYawMoment(t *testing.T) {
	m := newTestModel(t)

	// Spin rotors 1 and 3 faster than 0 and 2: net drag torque about z,
	// zero roll/pitch moment and reduced but symmetric thrust.
	cmd := RotorSpeeds{300, 500, 300, 500}
	x := State{Rotation: QuatIdentity, RotorSpeed: cmd}
	x = m.NextState(x, cmd, 0.5)

	if x.AngularVelocity.Z <= 0 {
		t.Errorf("yaw rate = %v, want positive", x.AngularVelocity.Z)
	}
	if math.Abs(x.AngularVelocity.X) > 1e-9 || math.Abs(x.AngularVelocity.Y) > 1e-9 {
		t.Errorf("yaw-only command produced roll/pitch rates %+v", x.AngularVelocity)
	}
	if n := x.Rotation.Norm(); math.Abs(n-1) > 1e-12 {
		t.Errorf("rotation norm = %v after step, want 1", n)
	}
}

func TestHoverSpeedBalancesWeight(t *testing.T) {
	m := newTestModel(t)
	p := m.Params()

	w := m.HoverSpeed()
	thrust := 4 * p.ThrustCoeff * w * w
	if math.Abs(thrust-p.Mass*p.Gravity) > 1e-9 {
		t.Errorf("hover thrust %v does not balance weight %v", thrust, p.Mass*p.Gravity)
	}
}

func TestMomentsToRotorSpeeds(t *testing.T) {
	m := newTestModel(t)
	hover := m.HoverSpeed()

	t.Run("hover", func(t *testing.T) {
		got := m.MomentsToRotorSpeeds(Vec3{}, 1)
		for i, w := range got {
			if math.Abs(w-hover) > 1e-9 {
				t.Errorf("rotor %d = %v, want hover speed %v", i, w, hover)
			}
		}
	})

	t.Run("roundtrip", func(t *testing.T) {
		moments := Vec3{0.02, -0.015, 0.001}
		speeds := m.MomentsToRotorSpeeds(moments, 1)

		// Push the squared speeds back through the mixing matrix; with a
		// feasible command the requested moments come back exactly.
		next := m.NextState(State{Rotation: QuatIdentity, RotorSpeed: speeds}, speeds, 0.01)
		alpha := next.AngularVelocity.Scale(1 / 0.01)
		back := Vec3{
			alpha.X * m.Params().Inertia.X,
			alpha.Y * m.Params().Inertia.Y,
			alpha.Z * m.Params().Inertia.Z,
		}
		if d := back.Sub(moments).Norm(); d > 1e-9 {
			t.Errorf("recovered moments %+v differ from requested %+v by %v", back, moments, d)
		}
	})

	t.Run("infeasible command shifts", func(t *testing.T) {
		// Zero thrust with a yaw moment forces negative squared speeds;
		// the solution shifts up instead of going NaN.
		got := m.MomentsToRotorSpeeds(Vec3{0, 0, 0.01}, 0)
		if got.IsNaN() {
			t.Fatalf("infeasible command produced NaN speeds %+v", got)
		}
		min := math.Inf(1)
		for _, w := range got {
			if w < min {
				min = w
			}
		}
		if min != 0 {
			t.Errorf("shifted solution has minimum speed %v, want 0", min)
		}
	})
}

func TestStateIsNaN(t *testing.T) {
	x := State{Rotation: QuatIdentity}
	if x.IsNaN() {
		t.Error("clean state reported NaN")
	}
	x.Velocity.Y = math.NaN()
	if !x.IsNaN() {
		t.Error("state with NaN velocity not detected")
	}
}
