package main

import (
	"flag"
	"math/rand/v2"
	"time"

	"github.com/aerobench/quadsim/internal/env"
)

func benchCommand(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML environment config (defaults when empty)")
	seed := fs.Uint64("seed", 1, "Random seed")
	resets := fs.Int("resets", 5, "Number of episodes")
	steps := fs.Int("steps", 1000, "Steps per episode")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("failed to load config")
	}
	// Episodes must not end early while timing.
	cfg.MaxTime = float64(*steps+1) * cfg.Delay.Period

	e, err := env.New(cfg, rand.NewPCG(*seed, 0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build environment")
	}
	actions := rand.New(rand.NewPCG(*seed, 1))

	start := time.Now()
	for r := 0; r < *resets; r++ {
		e.Reset(nil, nil)
		for i := 0; i < *steps; i++ {
			var a [4]float64
			for j := range a {
				a[j] = actions.Float64()*2 - 1
			}
			if _, _, _, err := e.Step(a); err != nil {
				log.Fatal().Err(err).Int("reset", r).Int("step", i).Msg("step failed")
			}
		}
	}
	elapsed := time.Since(start)

	total := *resets * *steps
	log.Info().
		Dur("elapsed", elapsed).
		Int("steps", total).
		Float64("steps_per_sec", float64(total)/elapsed.Seconds()).
		Float64("realtime_factor", float64(total)*cfg.Delay.Period/elapsed.Seconds()).
		Msg("benchmark complete")
}
