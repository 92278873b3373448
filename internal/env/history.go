package env

import "fmt"

// HistoryConfig controls how many past observations and actions a policy
// sees, and whether it sees them as values or as first derivatives.
type HistoryConfig struct {
	PastStates  int // observation window length, at least 1
	PastActions int // action window length, 0 to not observe actions

	// Differential windows observe the change between consecutive entries
	// divided by the step duration, scaled down to the magnitude of the
	// absolute components.
	DifferentialStates  bool
	DifferentialActions bool
	Scale               float64
}

// DefaultHistoryConfig observes only the current state.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{PastStates: 1, Scale: 0.1}
}

func (c HistoryConfig) validate() error {
	switch {
	case c.PastStates < 1:
		return fmt.Errorf("env: history must keep at least one state, got %d", c.PastStates)
	case c.PastActions < 0:
		return fmt.Errorf("env: negative action history %d", c.PastActions)
	case c.Scale == 0:
		return fmt.Errorf("env: history scale must not be zero")
	case c.DifferentialStates && c.PastStates < 2:
		return fmt.Errorf("env: differential state history needs at least two states")
	}
	return nil
}

func (c HistoryConfig) window() int {
	w := c.PastStates
	if c.PastActions > w {
		w = c.PastActions
	}
	// One extra entry so a single-action differential view has a
	// predecessor to difference against.
	return w + 1
}

// ObservationHistory flattens a sliding window of past observations and
// relative rotor speeds into one policy input vector.
type ObservationHistory struct {
	cfg     HistoryConfig
	states  [][]float64
	actions [][4]float64
	dts     []float64
}

// NewObservationHistory validates cfg and returns an empty history; call
// Reset before the first Observe.
func NewObservationHistory(cfg HistoryConfig) (*ObservationHistory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &ObservationHistory{cfg: cfg}, nil
}

// Reset fills the window with copies of the initial entries so the view has
// its full size from the very first step.
func (h *ObservationHistory) Reset(obs []float64, relSpeed [4]float64, dt float64) []float64 {
	h.states = h.states[:0]
	h.actions = h.actions[:0]
	h.dts = h.dts[:0]
	for i := 0; i < h.cfg.window(); i++ {
		h.states = append(h.states, obs)
		h.actions = append(h.actions, relSpeed)
		h.dts = append(h.dts, dt)
	}
	return h.view()
}

// Observe appends the newest observation and action and returns the
// flattened window.
func (h *ObservationHistory) Observe(obs []float64, relSpeed [4]float64, dt float64) []float64 {
	h.states = append(h.states, obs)
	h.actions = append(h.actions, relSpeed)
	h.dts = append(h.dts, dt)
	if drop := len(h.states) - h.cfg.window(); drop > 0 {
		h.states = h.states[drop:]
		h.actions = h.actions[drop:]
		h.dts = h.dts[drop:]
	}
	return h.view()
}

func (h *ObservationHistory) view() []float64 {
	var out []float64

	n := len(h.states)
	if h.cfg.DifferentialStates {
		// Differences between consecutive observations, oldest first,
		// then the newest observation verbatim.
		for i := n - h.cfg.PastStates + 1; i < n; i++ {
			for j := range h.states[i] {
				out = append(out, (h.states[i][j]-h.states[i-1][j])/h.dts[i]*h.cfg.Scale)
			}
		}
		out = append(out, h.states[n-1]...)
	} else {
		for i := n - h.cfg.PastStates; i < n; i++ {
			out = append(out, h.states[i]...)
		}
	}

	switch {
	case h.cfg.PastActions == 0:
	case h.cfg.DifferentialActions && h.cfg.PastActions == 1:
		// A single differential action entry observes only the rotor
		// acceleration.
		last := len(h.actions) - 1
		for j := range h.actions[last] {
			out = append(out, (h.actions[last][j]-h.actions[last-1][j])/h.dts[last]*h.cfg.Scale)
		}
	case h.cfg.DifferentialActions:
		for i := n - h.cfg.PastActions + 1; i < n; i++ {
			for j := range h.actions[i] {
				out = append(out, (h.actions[i][j]-h.actions[i-1][j])/h.dts[i]*h.cfg.Scale)
			}
		}
		out = append(out, h.actions[n-1][:]...)
	default:
		for i := n - h.cfg.PastActions; i < n; i++ {
			out = append(out, h.actions[i][:]...)
		}
	}
	return out
}

// Dt returns the duration of the most recent step.
func (h *ObservationHistory) Dt() float64 {
	return h.dts[len(h.dts)-1]
}

// Len returns the length of the flattened view for an observation of obsLen
// components.
func (c HistoryConfig) Len(obsLen int) int {
	n := c.PastStates * obsLen
	if c.DifferentialStates {
		n = (c.PastStates-1)*obsLen + obsLen
	}
	switch {
	case c.PastActions == 0:
	case c.DifferentialActions && c.PastActions == 1:
		n += 4
	case c.DifferentialActions:
		n += (c.PastActions-1)*4 + 4
	default:
		n += c.PastActions * 4
	}
	return n
}
