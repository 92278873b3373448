package env

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/aerobench/quadsim/internal/delay"
	"github.com/aerobench/quadsim/internal/quad"
)

// RewardBase selects which state the reward is computed on.
type RewardBase string

const (
	// RewardOnCurrentState scores the true state before the step.
	RewardOnCurrentState RewardBase = "current_state"
	// RewardOnNextState scores the true state after the step.
	RewardOnNextState RewardBase = "next_state"
	// RewardOnObservedState scores the delayed observation.
	RewardOnObservedState RewardBase = "observed_state"
	// RewardOnNoisyObservation scores the delayed observation with sensor
	// noise applied, exactly what the policy sees.
	RewardOnNoisyObservation RewardBase = "observed_state_with_noise"
)

// InitialStateConfig bounds the uniform distribution episodes start from.
// Rotors always start at the hovering speed.
type InitialStateConfig struct {
	BoxSide         float64 // position drawn from ±BoxSide per axis
	Velocity        float64 // velocity drawn from ±Velocity per axis
	AngularVelocity float64 // body rates drawn from ±AngularVelocity
}

// Config assembles every part of the simulation environment.
type Config struct {
	Model       quad.Params
	Delay       delay.Config
	Clip        ClipConfig
	Observation ObservationConfig
	Noise       NoiseConfig
	History     HistoryConfig
	Rotor       RotorConfig
	Reward      RewardConfig
	PD          *PDConfig // nil disables the attitude support controller

	RewardBase        RewardBase
	Initial           InitialStateConfig
	MaxTime           float64 // episode length in simulated seconds
	ObserveRotorSpeed bool    // include scaled rotor speeds in observations
}

// DefaultConfig is a hovering task on the reference vehicle: 100 Hz
// control, no delays, no noise, ten-second episodes.
func DefaultConfig() Config {
	return Config{
		Model:       quad.DefaultParams(),
		Delay:       delay.Config{Period: 0.01},
		Clip:        DefaultClipConfig(),
		Observation: DefaultObservationConfig(),
		History:     DefaultHistoryConfig(),
		Rotor:       DefaultRotorConfig(),
		Reward:      DefaultRewardConfig(),
		RewardBase:  RewardOnCurrentState,
		Initial:     InitialStateConfig{BoxSide: 2, Velocity: 1, AngularVelocity: 1},
		MaxTime:     10,
	}
}

// Environment is the complete simulated quadrotor task. Policies interact
// through Reset and Step; everything in between (delay, clipping, noise,
// history) is wired internally. Not safe for concurrent use.
type Environment struct {
	cfg    Config
	model  *quad.Model
	engine *delay.Engine[quad.State, quad.RotorSpeeds]

	obsMap  *ObservationMap
	noise   *NoiseModel
	history *ObservationHistory
	rotor   *RotorMapping
	pd      *AttitudePD
	reward  *Reward

	rng     *rand.Rand
	lastAge float64
}

// New builds an environment from cfg. src seeds everything stochastic:
// jitter, noise and initial states. One source per environment keeps
// parallel instances independent and runs reproducible.
func New(cfg Config, src rand.Source) (*Environment, error) {
	if src == nil {
		return nil, errors.New("env: random source required")
	}
	switch cfg.RewardBase {
	case "":
		cfg.RewardBase = RewardOnCurrentState
	case RewardOnCurrentState, RewardOnNextState, RewardOnObservedState, RewardOnNoisyObservation:
	default:
		return nil, fmt.Errorf("env: unknown reward base %q", cfg.RewardBase)
	}
	if cfg.MaxTime <= 0 {
		return nil, fmt.Errorf("env: episode length %v must be positive", cfg.MaxTime)
	}

	model, err := quad.NewModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	clipped, err := NewClippedModel(model, cfg.Clip)
	if err != nil {
		return nil, err
	}
	engine, err := delay.NewEngine[quad.State, quad.RotorSpeeds](clipped, cfg.Delay, src)
	if err != nil {
		return nil, err
	}

	if cfg.ObserveRotorSpeed && cfg.Observation.RotorSpeedScale == 0 {
		cfg.Observation.RotorSpeedScale = 0.1 / model.HoverSpeed()
	}
	obsMap, err := NewObservationMap(cfg.Observation)
	if err != nil {
		return nil, err
	}
	history, err := NewObservationHistory(cfg.History)
	if err != nil {
		return nil, err
	}
	rotor, err := NewRotorMapping(model.HoverSpeed(), cfg.Rotor)
	if err != nil {
		return nil, err
	}

	e := &Environment{
		cfg:     cfg,
		model:   model,
		engine:  engine,
		obsMap:  obsMap,
		noise:   NewNoiseModel(cfg.Noise, src),
		history: history,
		rotor:   rotor,
		reward:  NewReward(cfg.Reward),
		rng:     rand.New(src),
	}
	if cfg.PD != nil {
		e.pd = NewAttitudePD(model, *cfg.PD)
	}
	return e, nil
}

// Model returns the underlying rigid-body model.
func (e *Environment) Model() *quad.Model { return e.model }

// Observations returns the observation mapping; its offsets may be mutated
// between steps to move the target.
func (e *Environment) Observations() *ObservationMap { return e.obsMap }

// Time returns the current simulated time of the running episode.
func (e *Environment) Time() float64 { return e.engine.Time() }

// ObservationAge returns how far behind the true state the most recent
// observation was.
func (e *Environment) ObservationAge() float64 { return e.lastAge }

// CurrentState returns the true vehicle state, bypassing delay and noise.
func (e *Environment) CurrentState() (quad.State, error) {
	return e.engine.CurrentState()
}

// RandomState draws an episode start state from the configured bounds.
func (e *Environment) RandomState() quad.State {
	uniform := func(bound float64) quad.Vec3 {
		return quad.Vec3{
			X: (e.rng.Float64()*2 - 1) * bound,
			Y: (e.rng.Float64()*2 - 1) * bound,
			Z: (e.rng.Float64()*2 - 1) * bound,
		}
	}
	hover := e.model.HoverSpeed()
	return quad.State{
		Position:        uniform(e.cfg.Initial.BoxSide),
		Velocity:        uniform(e.cfg.Initial.Velocity),
		Rotation:        quad.RandomRotation(e.rng),
		AngularVelocity: uniform(e.cfg.Initial.AngularVelocity),
		RotorSpeed:      quad.RotorSpeeds{hover, hover, hover, hover},
	}
}

// Reset starts a new episode. A nil initial state draws a random one; a nil
// rotor speed starts at hover. It returns the first policy observation.
func (e *Environment) Reset(initial *quad.State, rotors *quad.RotorSpeeds) []float64 {
	hover := e.model.HoverSpeed()
	speeds := quad.RotorSpeeds{hover, hover, hover, hover}
	if rotors != nil {
		speeds = *rotors
	}
	var state quad.State
	if initial != nil {
		state = *initial
	} else {
		state = e.RandomState()
	}
	if state.RotorSpeed == (quad.RotorSpeeds{}) {
		state.RotorSpeed = speeds
	}

	obs := e.engine.Reset(speeds, state)
	e.lastAge = obs.Age
	initial0 := e.obsMap.Observe(obs.State, obs.Dt, obs.Age)
	rel := e.rotor.Reset(speeds)
	return e.history.Reset(initial0, rel, obs.Dt)
}

// Step applies one policy action and advances the simulation by one
// controller tick. done reports that the episode reached its time limit.
func (e *Environment) Step(action [4]float64) (obs []float64, reward float64, done bool, err error) {
	speeds, rel, accel := e.rotor.Map(action, e.history.Dt())

	if e.pd != nil {
		cur, err := e.engine.CurrentState()
		if err != nil {
			return nil, 0, false, err
		}
		support := e.pd.Control(cur)
		for i := range speeds {
			speeds[i] = clampf(speeds[i]+support[i], 0, e.model.HoverSpeed()*3)
		}
	}

	if e.cfg.RewardBase == RewardOnCurrentState {
		cur, err := e.engine.CurrentState()
		if err != nil {
			return nil, 0, false, err
		}
		reward = e.reward.Score(cur, rel, accel)
	}

	o, err := e.engine.Step(speeds)
	if err != nil {
		return nil, 0, false, err
	}
	e.lastAge = o.Age
	if e.cfg.RewardBase == RewardOnObservedState {
		reward = e.reward.Score(o.State, rel, accel)
	}

	noisy := e.noise.Apply(o.State)
	if e.cfg.RewardBase == RewardOnNoisyObservation {
		reward = e.reward.Score(noisy, rel, accel)
	}

	obs = e.history.Observe(e.obsMap.Observe(noisy, o.Dt, o.Age), rel, o.Dt)

	if e.cfg.RewardBase == RewardOnNextState {
		cur, err := e.engine.CurrentState()
		if err != nil {
			return nil, 0, false, err
		}
		reward = e.reward.Score(cur, rel, accel)
	}

	return obs, reward, e.engine.Time() >= e.cfg.MaxTime, nil
}
