// Package delay wraps a state-transition model with a logical clock,
// timestamped action/state histories, and configurable transport delays, so
// a controller sees the plant the way a real radio link would show it:
// actions take effect a few ticks late, observations arrive a few ticks
// stale, and tick durations wander around the nominal period.
package delay

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Model advances a state by one action held constant over a duration.
// Accuracy must not depend on the duration being small or regular; the
// engine advances by irregular, jittered step sizes.
type Model[S, A any] interface {
	NextState(state S, action A, duration float64) S
}

// TransitionFunc adapts a plain function to the Model interface.
type TransitionFunc[S, A any] func(state S, action A, duration float64) S

func (f TransitionFunc[S, A]) NextState(s S, a A, d float64) S { return f(s, a, d) }

// Config describes the timing behaviour of an Engine. Delays are integer
// tick counts; jitters are magnitudes in time units, sampled symmetrically
// around the nominal value.
type Config struct {
	Period            float64 // nominal tick duration, > 0
	PeriodJitter      float64 // tick duration jitter, in [0, Period)
	ActionDelay       int     // ticks before an issued action reaches the plant
	ActionJitter      float64 // jitter on the action due point
	ObservationDelay  int     // ticks before a true state becomes observable
	ObservationJitter float64 // jitter on the observation due point
}

func (c Config) validate() error {
	switch {
	case c.Period <= 0:
		return fmt.Errorf("delay: period %v must be positive", c.Period)
	case c.PeriodJitter < 0 || c.PeriodJitter >= c.Period:
		return fmt.Errorf("delay: period jitter %v outside [0, %v)", c.PeriodJitter, c.Period)
	case c.ActionDelay < 0:
		return fmt.Errorf("delay: action delay %d must not be negative", c.ActionDelay)
	case c.ObservationDelay < 0:
		return fmt.Errorf("delay: observation delay %d must not be negative", c.ObservationDelay)
	case c.ActionJitter < 0 || c.ActionJitter > float64(c.ActionDelay)*c.Period:
		return fmt.Errorf("delay: action jitter %v exceeds nominal delay %v", c.ActionJitter, float64(c.ActionDelay)*c.Period)
	case c.ObservationJitter < 0 || c.ObservationJitter > float64(c.ObservationDelay)*c.Period:
		return fmt.Errorf("delay: observation jitter %v exceeds nominal delay %v", c.ObservationJitter, float64(c.ObservationDelay)*c.Period)
	}
	return nil
}

func (c Config) maxDelay() int {
	if c.ActionDelay > c.ObservationDelay {
		return c.ActionDelay
	}
	return c.ObservationDelay
}

// ErrBeforeHistory is returned by StateAt for times older than the earliest
// retained history entry.
var ErrBeforeHistory = errors.New("delay: time precedes retained history")

// ErrNotReady is returned by Step before the first Reset.
var ErrNotReady = errors.New("delay: engine not reset")

// Observation is what the controller receives each tick: the delayed state
// view, the actual tick duration, and how stale the view is.
type Observation[S any] struct {
	State S
	Dt    float64
	Age   float64
}

// Engine runs a Model behind simulated actuation and sensing latency.
// Not safe for concurrent use; parallel simulations each own an Engine.
type Engine[S, A any] struct {
	model Model[S, A]
	cfg   Config

	tickJit Jitter
	actJit  Jitter
	obsJit  Jitter

	actions History[A]
	states  History[S]
	keep    int
	now     float64
	ready   bool
}

// NewEngine validates cfg and builds an engine around model. src drives
// jitter sampling and may be nil when all jitter magnitudes are zero;
// callers seed it per instance for reproducible runs.
func NewEngine[S, A any](model Model[S, A], cfg Config, src rand.Source) (*Engine[S, A], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if src == nil && (cfg.PeriodJitter > 0 || cfg.ActionJitter > 0 || cfg.ObservationJitter > 0) {
		return nil, errors.New("delay: jitter configured without a random source")
	}
	return &Engine[S, A]{
		model:   model,
		cfg:     cfg,
		tickJit: UniformJitter(cfg.PeriodJitter, src),
		actJit:  UniformJitter(cfg.ActionJitter, src),
		obsJit:  UniformJitter(cfg.ObservationJitter, src),
		keep:    retention(cfg),
	}, nil
}

// retention is the history length that keeps every due-point search inside
// the buffer. Due-point jitter can reach past the nominal delay, and period
// jitter shrinks the spacing such a search must cross, so both widen the
// floor beyond maxDelay+2.
func retention(cfg Config) int {
	keep := cfg.maxDelay() + 2
	jit := cfg.ActionJitter
	if cfg.ObservationJitter > jit {
		jit = cfg.ObservationJitter
	}
	if jit > 0 {
		keep += int(jit/(cfg.Period-cfg.PeriodJitter)) + 1
	}
	return keep
}

// Config returns the engine's timing configuration.
func (e *Engine[S, A]) Config() Config { return e.cfg }

// Time returns the current logical time. Zero until the first Step.
func (e *Engine[S, A]) Time() float64 { return e.now }

// Reset clears both histories and seeds them with enough copies of the
// initial action and state to answer every delayed lookup immediately. The
// seeds are backdated one nominal period apart so timestamps stay strictly
// increasing and the first observation is exactly ObservationDelay periods
// old. The newest state seed sits at time zero; action seeds sit one period
// earlier, each covering the virtual tick that ends at the next state seed,
// so the first stepped action gets time zero to itself. The returned Dt is
// the nominal period, as if a regular tick had just completed.
func (e *Engine[S, A]) Reset(action A, state S) Observation[S] {
	e.actions.Reset()
	e.states.Reset()
	e.now = 0
	for k := e.cfg.maxDelay(); k >= 0; k-- {
		mustAppend(&e.actions, -float64(k+1)*e.cfg.Period, action)
		mustAppend(&e.states, -float64(k)*e.cfg.Period, state)
	}
	e.ready = true
	return Observation[S]{
		State: state,
		Dt:    e.cfg.Period,
		Age:   float64(e.cfg.ObservationDelay) * e.cfg.Period,
	}
}

// Step records action, advances the plant by one jittered tick using the
// action that is due now, and returns the observation that is due now.
func (e *Engine[S, A]) Step(action A) (Observation[S], error) {
	if !e.ready {
		return Observation[S]{}, ErrNotReady
	}
	dt := e.cfg.Period + e.tickJit.Sample()

	if err := e.actions.Append(e.now, action); err != nil {
		return Observation[S]{}, err
	}
	due := e.dueAction()

	next := e.model.NextState(e.states.Latest().Value, due, dt)
	e.now += dt
	if err := e.states.Append(e.now, next); err != nil {
		return Observation[S]{}, err
	}

	obs := e.dueState()

	e.actions.PruneTo(e.keep)
	e.states.PruneTo(e.keep)

	return Observation[S]{State: obs.Value, Dt: dt, Age: e.now - obs.Time}, nil
}

// dueAction picks the action issued ActionDelay ticks ago. With zero jitter
// the pick is by tick count, exact regardless of accumulated float error;
// with jitter it is a timestamp search around the perturbed due point.
func (e *Engine[S, A]) dueAction() A {
	if e.cfg.ActionJitter == 0 {
		return e.actions.At(backSeq(e.actions.LastSeq(), e.cfg.ActionDelay)).Value
	}
	target := e.now - float64(e.cfg.ActionDelay)*e.cfg.Period - e.actJit.Sample()
	rec, _, _ := e.actions.Before(target)
	return rec.Value
}

func (e *Engine[S, A]) dueState() Record[S] {
	if e.cfg.ObservationJitter == 0 {
		return e.states.At(backSeq(e.states.LastSeq(), e.cfg.ObservationDelay))
	}
	target := e.now - float64(e.cfg.ObservationDelay)*e.cfg.Period - e.obsJit.Sample()
	rec, _, _ := e.states.Before(target)
	return rec
}

// CurrentState returns the true plant state at the current logical time.
func (e *Engine[S, A]) CurrentState() (S, error) {
	return e.StateAt(e.now)
}

// StateAt reconstructs the true state at time t. Recorded tick boundaries
// are returned exactly; times between boundaries, or past the newest entry,
// are reached by holding the action that was in effect over that interval
// and advancing the model from the nearest earlier boundary. Times older
// than the retained history return ErrBeforeHistory.
func (e *Engine[S, A]) StateAt(t float64) (S, error) {
	var zero S
	if !e.ready {
		return zero, ErrNotReady
	}
	rec, seq, ok := e.states.Before(t)
	if !ok {
		return zero, fmt.Errorf("%w: %v before %v", ErrBeforeHistory, t, rec.Time)
	}
	if rec.Time == t {
		return rec.Value, nil
	}
	// The interval starting at state entry m was driven by the action due
	// at that step, which sits ActionDelay entries behind action m+1.
	act := e.actions.At(backSeq(seq+1, e.cfg.ActionDelay)).Value
	return e.model.NextState(rec.Value, act, t-rec.Time), nil
}

// mustAppend panics on a non-increasing timestamp. Reset's seed loop emits
// strictly increasing times into a cleared history, so a failure here is a
// programming error, not a runtime condition.
func mustAppend[T any](h *History[T], t float64, v T) {
	if err := h.Append(t, v); err != nil {
		panic(err)
	}
}

func backSeq(last uint64, n int) uint64 {
	if uint64(n) > last {
		return 0
	}
	return last - uint64(n)
}
