// Command quadsim runs simulated quadrotor episodes, records them to the
// flight log and benchmarks the simulation loop.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aerobench/quadsim/internal/version"
)

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "bench":
		benchCommand(os.Args[2:])
	case "migrate":
		migrateCommand(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: quadsim <command> [flags]

Commands:
  run      simulate episodes and record them to the flight log
  bench    time the simulation loop with random actions
  migrate  manage the flight log schema (up | down | status)
  version  print build information
  help     show this help

Run 'quadsim <command> -h' for command flags.
`)
}
