package env

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aerobench/quadsim/internal/delay"
	"github.com/aerobench/quadsim/internal/quad"
)

func hoverStart(m *quad.Model) quad.State {
	h := m.HoverSpeed()
	return quad.State{
		Rotation:   quad.QuatIdentity,
		RotorSpeed: quad.RotorSpeeds{h, h, h, h},
	}
}

func rollout(t *testing.T, cfg Config, seed uint64, steps int) ([][]float64, []float64) {
	t.Helper()
	e, err := New(cfg, rand.NewPCG(seed, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	policy := rand.New(rand.NewPCG(seed+1, 0))

	obs := [][]float64{e.Reset(nil, nil)}
	var rewards []float64
	for i := 0; i < steps; i++ {
		var a [4]float64
		for j := range a {
			a[j] = policy.Float64()*0.2 - 0.1
		}
		o, r, _, err := e.Step(a)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		obs = append(obs, o)
		rewards = append(rewards, r)
	}
	return obs, rewards
}

func TestEnvironmentDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise.Position = Gaussian{Std: 0.01}
	cfg.Delay.PeriodJitter = 0.001

	obsA, rewA := rollout(t, cfg, 42, 50)
	obsB, rewB := rollout(t, cfg, 42, 50)
	if diff := cmp.Diff(obsA, obsB); diff != "" {
		t.Errorf("same-seed observations differ (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(rewA, rewB); diff != "" {
		t.Errorf("same-seed rewards differ (-a +b):\n%s", diff)
	}

	obsC, _ := rollout(t, cfg, 43, 50)
	if diff := cmp.Diff(obsA, obsC); diff == "" {
		t.Error("different seeds produced identical rollouts")
	}
}

func TestEnvironmentEpisode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTime = 0.5
	cfg.ObserveRotorSpeed = true
	cfg.History = HistoryConfig{PastStates: 2, PastActions: 1, Scale: 0.1}

	e, err := New(cfg, rand.NewPCG(3, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	wantLen := e.cfg.History.Len(e.obsMap.Len())

	obs := e.Reset(nil, nil)
	if len(obs) != wantLen {
		t.Fatalf("reset observation length %d, want %d", len(obs), wantLen)
	}

	steps := 0
	for {
		o, _, done, err := e.Step([4]float64{})
		if err != nil {
			t.Fatalf("step %d: %v", steps, err)
		}
		steps++
		if len(o) != wantLen {
			t.Fatalf("step %d observation length %d, want %d", steps, len(o), wantLen)
		}
		if done {
			break
		}
		if steps > 100 {
			t.Fatal("episode never finished")
		}
	}
	if steps != 50 {
		t.Errorf("episode ran %d steps, want 50", steps)
	}
	if got := e.Time(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("episode time %v, want 0.5", got)
	}
}

func TestEnvironmentNoNaN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delay = delay.Config{
		Period:            0.01,
		PeriodJitter:      0.002,
		ActionDelay:       2,
		ActionJitter:      0.005,
		ObservationDelay:  1,
		ObservationJitter: 0.005,
	}
	cfg.Noise = NoiseConfig{
		Position:        Gaussian{Std: 0.02},
		Velocity:        Gaussian{Std: 0.02},
		Rotation:        Gaussian{Std: 0.01},
		AngularVelocity: Gaussian{Std: 0.05},
	}
	cfg.Rotor = RotorConfig{MinSpeed: 0, MaxSpeed: 3, MaxAccel: 50, AccelLimit: AccelTanh, Control: ControlDirect}
	cfg.Observation.RotationMode = EulerLocal
	cfg.ObserveRotorSpeed = true

	e, err := New(cfg, rand.NewPCG(7, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	policy := rand.New(rand.NewPCG(8, 0))

	e.Reset(nil, nil)
	for i := 0; i < 300; i++ {
		var a [4]float64
		for j := range a {
			a[j] = policy.Float64()*2 - 1
		}
		o, r, _, err := e.Step(a)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if math.IsNaN(r) || math.IsInf(r, 0) {
			t.Fatalf("step %d: reward %v", i, r)
		}
		for k, v := range o {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("step %d: observation[%d] = %v", i, k, v)
			}
		}
	}
	s, err := e.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if s.IsNaN() {
		t.Fatalf("final state has NaN: %+v", s)
	}
}

func TestEnvironmentPDStabilizes(t *testing.T) {
	pd := DefaultPDConfig()
	cfg := DefaultConfig()
	cfg.PD = &pd

	e, err := New(cfg, rand.NewPCG(12, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := hoverStart(e.Model())
	start.Rotation = quad.QuatExp(quad.Vec3{X: 0.15}) // rolled 0.3 rad
	start.AngularVelocity = quad.Vec3{Y: 0.5}
	e.Reset(&start, nil)

	// Action -1 maps to zero commanded speed; the support controller alone
	// must level the vehicle.
	for i := 0; i < 400; i++ {
		if _, _, _, err := e.Step([4]float64{-1, -1, -1, -1}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	s, err := e.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	eul := s.Rotation.EulerRPY()
	if math.Abs(eul.X) > 0.02 || math.Abs(eul.Y) > 0.02 {
		t.Errorf("attitude not leveled: roll %v pitch %v", eul.X, eul.Y)
	}
	if s.AngularVelocity.Norm() > 0.1 {
		t.Errorf("residual body rates %v", s.AngularVelocity)
	}
}

func TestEnvironmentRewardBases(t *testing.T) {
	for _, base := range []RewardBase{
		RewardOnCurrentState, RewardOnNextState, RewardOnObservedState, RewardOnNoisyObservation,
	} {
		cfg := DefaultConfig()
		cfg.RewardBase = base
		e, err := New(cfg, rand.NewPCG(20, 0))
		if err != nil {
			t.Fatalf("%s: New: %v", base, err)
		}
		start := hoverStart(e.Model())
		e.Reset(&start, nil)
		if _, r, _, err := e.Step([4]float64{}); err != nil || r > 0 {
			t.Errorf("%s: reward %v err %v", base, r, err)
		}
	}

	cfg := DefaultConfig()
	cfg.RewardBase = "afterwards"
	if _, err := New(cfg, rand.NewPCG(21, 0)); err == nil {
		t.Error("unknown reward base accepted")
	}
}

func TestRandomizedEnvironment(t *testing.T) {
	sampler := func(rng *rand.Rand) Config {
		cfg := DefaultConfig()
		cfg.Delay.ActionDelay = Interval{Low: 0, High: 3}.SampleInt(rng)
		cfg.Model.Mass *= 0.8 + 0.4*rng.Float64()
		return cfg
	}
	r, err := NewRandomized(sampler, rand.NewPCG(30, 0))
	if err != nil {
		t.Fatalf("NewRandomized: %v", err)
	}

	masses := map[float64]bool{}
	for i := 0; i < 5; i++ {
		obs, err := r.Reset(nil, nil)
		if err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
		if len(obs) == 0 {
			t.Fatalf("reset %d: empty observation", i)
		}
		masses[r.Env().Model().Params().Mass] = true
		for j := 0; j < 20; j++ {
			if _, _, _, err := r.Step([4]float64{}); err != nil {
				t.Fatalf("reset %d step %d: %v", i, j, err)
			}
		}
	}
	if len(masses) < 2 {
		t.Error("resets never varied the sampled mass")
	}
}

func TestEnvironmentStepMatchesModel(t *testing.T) {
	// With no delay, noise or support controller the environment's first
	// tick is the bare integrator driven by the mapped action. A dropped or
	// misaligned command anywhere in the composition shows up here.
	cfg := DefaultConfig()
	e, err := New(cfg, rand.NewPCG(1, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := e.Model()
	start := hoverStart(m)
	e.Reset(&start, nil)

	action := [4]float64{0.1, -0.2, 0.05, 0}
	mapping, err := NewRotorMapping(m.HoverSpeed(), cfg.Rotor)
	if err != nil {
		t.Fatalf("NewRotorMapping: %v", err)
	}
	mapping.Reset(start.RotorSpeed)
	speeds, _, _ := mapping.Map(action, cfg.Delay.Period)
	want := m.NextState(start, speeds, cfg.Delay.Period)

	if _, _, _, err := e.Step(action); err != nil {
		t.Fatalf("Step: %v", err)
	}
	got, err := e.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("first tick diverged from the bare model (-want +got):\n%s", diff)
	}
}

func BenchmarkEnvironmentStep(b *testing.B) {
	e, err := New(DefaultConfig(), rand.NewPCG(1, 0))
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	actions := rand.New(rand.NewPCG(2, 0))
	e.Reset(nil, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var a [4]float64
		for j := range a {
			a[j] = actions.Float64()*2 - 1
		}
		if _, _, done, err := e.Step(a); err != nil {
			b.Fatalf("step: %v", err)
		} else if done {
			e.Reset(nil, nil)
		}
	}
}

func BenchmarkEnvironmentStepDelayed(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Delay.ActionDelay = 2
	cfg.Delay.ObservationDelay = 1
	cfg.Delay.PeriodJitter = 0.002
	e, err := New(cfg, rand.NewPCG(1, 0))
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	actions := rand.New(rand.NewPCG(2, 0))
	e.Reset(nil, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var a [4]float64
		for j := range a {
			a[j] = actions.Float64()*2 - 1
		}
		if _, _, done, err := e.Step(a); err != nil {
			b.Fatalf("step: %v", err)
		} else if done {
			e.Reset(nil, nil)
		}
	}
}
