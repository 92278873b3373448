package main

import (
	"flag"
	"math/rand/v2"
	"time"

	"github.com/aerobench/quadsim/internal/env"
	"github.com/aerobench/quadsim/internal/flightlog"
	"github.com/aerobench/quadsim/internal/quad"
	"github.com/aerobench/quadsim/internal/timeutil"
)

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML environment config (defaults when empty)")
	dbPath := fs.String("db", "flightlog.db", "Flight log database path")
	episodes := fs.Int("episodes", 1, "Number of episodes to run")
	seed := fs.Uint64("seed", 1, "Base random seed; episode i uses seed+i")
	label := fs.String("label", "", "Episode label stored in the flight log")
	policy := fs.String("policy", "hover", "Action source: hover (zero actions) or random")
	realtime := fs.Bool("realtime", false, "Pace the simulation at wall-clock rate")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("failed to load config")
	}
	cfgJSON, err := configJSON(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode config")
	}

	db, err := flightlog.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to open flight log")
	}
	defer db.Close()

	for i := 0; i < *episodes; i++ {
		epSeed := *seed + uint64(i)
		if err := runEpisode(db, cfg, cfgJSON, *label, *policy, epSeed, *realtime); err != nil {
			log.Fatal().Err(err).Uint64("seed", epSeed).Msg("episode failed")
		}
	}
}

func runEpisode(db *flightlog.DB, cfg env.Config, cfgJSON, label, policy string, seed uint64, realtime bool) error {
	e, err := env.New(cfg, rand.NewPCG(seed, 0))
	if err != nil {
		return err
	}
	actions := rand.New(rand.NewPCG(seed, 1))

	var pacer *timeutil.Pacer
	if realtime {
		period := time.Duration(cfg.Delay.Period * float64(time.Second))
		pacer = timeutil.NewPacer(timeutil.RealClock{}, period)
	}

	rec, err := db.NewRecorder(&flightlog.Episode{
		Label:      label,
		Seed:       int64(seed),
		ConfigJSON: cfgJSON,
	}, 0)
	if err != nil {
		return err
	}

	e.Reset(nil, nil)
	total := 0.0
	var step int64
	for {
		var a [4]float64
		if policy == "random" {
			for j := range a {
				a[j] = actions.Float64()*2 - 1
			}
		}
		_, reward, done, err := e.Step(a)
		if err != nil {
			return err
		}
		total += reward

		state, err := e.CurrentState()
		if err != nil {
			return err
		}
		if err := rec.Record(flightlog.Tick{
			Step:   step,
			Time:   e.Time(),
			State:  state,
			Action: a,
			Reward: reward,
			Age:    e.ObservationAge(),
		}); err != nil {
			return err
		}
		step++
		if pacer != nil {
			pacer.Wait()
		}
		if done || state.IsNaN() {
			if state.IsNaN() {
				log.Warn().Int64("step", step).Msg("state diverged to NaN, ending episode")
			}
			break
		}
	}
	if err := rec.Close(); err != nil {
		return err
	}

	final, _ := e.CurrentState()
	log.Info().
		Str("episode", rec.Episode().ID).
		Uint64("seed", seed).
		Int64("steps", step).
		Float64("total_reward", total).
		Float64("final_distance", distance(final)).
		Msg("episode recorded")
	return nil
}

func distance(s quad.State) float64 {
	return s.Position.Norm()
}
