package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/viper"

	"github.com/aerobench/quadsim/internal/delay"
	"github.com/aerobench/quadsim/internal/env"
	"github.com/aerobench/quadsim/internal/quad"
)

// loadConfig builds an environment configuration from defaults overlaid
// with an optional YAML file. An empty path uses the defaults only.
func loadConfig(path string) (env.Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return env.Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := env.DefaultConfig()

	cfg.Model = quad.Params{
		Gravity: v.GetFloat64("model.gravity"),
		Mass:    v.GetFloat64("model.mass"),
		Inertia: quad.Vec3{
			X: v.GetFloat64("model.inertia_x"),
			Y: v.GetFloat64("model.inertia_y"),
			Z: v.GetFloat64("model.inertia_z"),
		},
		ArmLength:    v.GetFloat64("model.arm_length"),
		ThrustCoeff:  v.GetFloat64("model.thrust_coeff"),
		RotorInertia: v.GetFloat64("model.rotor_inertia"),
		DragCoeff:    v.GetFloat64("model.drag_coeff"),
	}

	cfg.Delay = delay.Config{
		Period:            v.GetFloat64("delay.period"),
		PeriodJitter:      v.GetFloat64("delay.period_jitter"),
		ActionDelay:       v.GetInt("delay.action_delay"),
		ActionJitter:      v.GetFloat64("delay.action_jitter"),
		ObservationDelay:  v.GetInt("delay.observation_delay"),
		ObservationJitter: v.GetFloat64("delay.observation_jitter"),
	}

	cfg.Clip.Velocity = env.Symmetric(v.GetFloat64("clip.velocity"))
	cfg.Clip.AngularVelocity = env.Symmetric(v.GetFloat64("clip.angular_velocity"))
	if p := v.GetFloat64("clip.position"); p > 0 {
		cfg.Clip.Position = env.Symmetric(p)
	}

	cfg.Observation.Local = v.GetBool("observation.local")
	cfg.Observation.HuberScaling = v.GetBool("observation.huber")
	cfg.Observation.PositionScale = v.GetFloat64("observation.position_scale")
	cfg.Observation.VelocityScale = v.GetFloat64("observation.velocity_scale")
	cfg.Observation.AngularVelocityScale = v.GetFloat64("observation.angular_velocity_scale")
	cfg.Observation.ObserveRotation = v.GetBool("observation.rotation")
	cfg.Observation.RotationMode = env.RotationMode(v.GetString("observation.rotation_mode"))

	cfg.Noise = env.NoiseConfig{
		Scale:           v.GetFloat64("noise.scale"),
		Position:        env.Gaussian{Std: v.GetFloat64("noise.position_std")},
		Velocity:        env.Gaussian{Std: v.GetFloat64("noise.velocity_std")},
		Rotation:        env.Gaussian{Std: v.GetFloat64("noise.rotation_std")},
		AngularVelocity: env.Gaussian{Std: v.GetFloat64("noise.angular_velocity_std")},
		RotorSpeed:      env.Gaussian{Std: v.GetFloat64("noise.rotor_speed_std")},
	}

	cfg.History = env.HistoryConfig{
		PastStates:          v.GetInt("history.past_states"),
		PastActions:         v.GetInt("history.past_actions"),
		DifferentialStates:  v.GetBool("history.differential_states"),
		DifferentialActions: v.GetBool("history.differential_actions"),
		Scale:               v.GetFloat64("history.scale"),
	}

	cfg.Rotor = env.RotorConfig{
		MinSpeed:   v.GetFloat64("rotor.min_speed"),
		MaxSpeed:   v.GetFloat64("rotor.max_speed"),
		MaxAccel:   v.GetFloat64("rotor.max_accel"),
		AccelLimit: env.AccelLimitMode(v.GetString("rotor.accel_limit")),
		Control:    env.ControlMode(v.GetString("rotor.control")),
	}

	if v.GetBool("pd.enabled") {
		cfg.PD = &env.PDConfig{
			P:        v.GetFloat64("pd.p"),
			D:        v.GetFloat64("pd.d"),
			YawScale: v.GetFloat64("pd.yaw_scale"),
		}
	}

	cfg.RewardBase = env.RewardBase(v.GetString("reward_base"))
	cfg.Initial = env.InitialStateConfig{
		BoxSide:         v.GetFloat64("initial.box_side"),
		Velocity:        v.GetFloat64("initial.velocity"),
		AngularVelocity: v.GetFloat64("initial.angular_velocity"),
	}
	cfg.MaxTime = v.GetFloat64("max_time")
	cfg.ObserveRotorSpeed = v.GetBool("observe_rotor_speed")

	return cfg, nil
}

// configJSON serializes the effective configuration for the flight log.
// Infinite bounds become nulls because JSON has no representation for them.
func configJSON(cfg env.Config) (string, error) {
	fin := func(f float64) any {
		if math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	m := map[string]any{
		"model": map[string]any{
			"gravity":       cfg.Model.Gravity,
			"mass":          cfg.Model.Mass,
			"inertia":       []float64{cfg.Model.Inertia.X, cfg.Model.Inertia.Y, cfg.Model.Inertia.Z},
			"arm_length":    cfg.Model.ArmLength,
			"thrust_coeff":  cfg.Model.ThrustCoeff,
			"rotor_inertia": cfg.Model.RotorInertia,
			"drag_coeff":    cfg.Model.DragCoeff,
		},
		"delay": map[string]any{
			"period":             cfg.Delay.Period,
			"period_jitter":      cfg.Delay.PeriodJitter,
			"action_delay":       cfg.Delay.ActionDelay,
			"action_jitter":      cfg.Delay.ActionJitter,
			"observation_delay":  cfg.Delay.ObservationDelay,
			"observation_jitter": cfg.Delay.ObservationJitter,
		},
		"clip": map[string]any{
			"position":         fin(cfg.Clip.Position.Hi),
			"velocity":         fin(cfg.Clip.Velocity.Hi),
			"angular_velocity": fin(cfg.Clip.AngularVelocity.Hi),
		},
		"rotor": map[string]any{
			"min_speed":   cfg.Rotor.MinSpeed,
			"max_speed":   cfg.Rotor.MaxSpeed,
			"max_accel":   fin(cfg.Rotor.MaxAccel),
			"accel_limit": string(cfg.Rotor.AccelLimit),
			"control":     string(cfg.Rotor.Control),
		},
		"reward_base":         string(cfg.RewardBase),
		"max_time":            cfg.MaxTime,
		"observe_rotor_speed": cfg.ObserveRotorSpeed,
		"pd_enabled":          cfg.PD != nil,
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return string(b), nil
}

func setDefaults(v *viper.Viper) {
	model := quad.DefaultParams()
	v.SetDefault("model.gravity", model.Gravity)
	v.SetDefault("model.mass", model.Mass)
	v.SetDefault("model.inertia_x", model.Inertia.X)
	v.SetDefault("model.inertia_y", model.Inertia.Y)
	v.SetDefault("model.inertia_z", model.Inertia.Z)
	v.SetDefault("model.arm_length", model.ArmLength)
	v.SetDefault("model.thrust_coeff", model.ThrustCoeff)
	v.SetDefault("model.rotor_inertia", model.RotorInertia)
	v.SetDefault("model.drag_coeff", model.DragCoeff)

	v.SetDefault("delay.period", 0.01)
	v.SetDefault("delay.period_jitter", 0.0)
	v.SetDefault("delay.action_delay", 0)
	v.SetDefault("delay.action_jitter", 0.0)
	v.SetDefault("delay.observation_delay", 0)
	v.SetDefault("delay.observation_jitter", 0.0)

	v.SetDefault("clip.velocity", 5.0)
	v.SetDefault("clip.angular_velocity", 20.0)
	v.SetDefault("clip.position", 0.0)

	obs := env.DefaultObservationConfig()
	v.SetDefault("observation.local", obs.Local)
	v.SetDefault("observation.huber", obs.HuberScaling)
	v.SetDefault("observation.position_scale", obs.PositionScale)
	v.SetDefault("observation.velocity_scale", obs.VelocityScale)
	v.SetDefault("observation.angular_velocity_scale", obs.AngularVelocityScale)
	v.SetDefault("observation.rotation", obs.ObserveRotation)
	v.SetDefault("observation.rotation_mode", string(obs.RotationMode))

	v.SetDefault("noise.scale", 1.0)
	v.SetDefault("noise.position_std", 0.0)
	v.SetDefault("noise.velocity_std", 0.0)
	v.SetDefault("noise.rotation_std", 0.0)
	v.SetDefault("noise.angular_velocity_std", 0.0)
	v.SetDefault("noise.rotor_speed_std", 0.0)

	hist := env.DefaultHistoryConfig()
	v.SetDefault("history.past_states", hist.PastStates)
	v.SetDefault("history.past_actions", hist.PastActions)
	v.SetDefault("history.differential_states", hist.DifferentialStates)
	v.SetDefault("history.differential_actions", hist.DifferentialActions)
	v.SetDefault("history.scale", hist.Scale)

	rotor := env.DefaultRotorConfig()
	v.SetDefault("rotor.min_speed", rotor.MinSpeed)
	v.SetDefault("rotor.max_speed", rotor.MaxSpeed)
	v.SetDefault("rotor.max_accel", rotor.MaxAccel)
	v.SetDefault("rotor.accel_limit", string(rotor.AccelLimit))
	v.SetDefault("rotor.control", string(rotor.Control))

	pd := env.DefaultPDConfig()
	v.SetDefault("pd.enabled", false)
	v.SetDefault("pd.p", pd.P)
	v.SetDefault("pd.d", pd.D)
	v.SetDefault("pd.yaw_scale", pd.YawScale)

	v.SetDefault("reward_base", string(env.RewardOnCurrentState))
	v.SetDefault("initial.box_side", 2.0)
	v.SetDefault("initial.velocity", 1.0)
	v.SetDefault("initial.angular_velocity", 1.0)
	v.SetDefault("max_time", 10.0)
	v.SetDefault("observe_rotor_speed", false)
}
