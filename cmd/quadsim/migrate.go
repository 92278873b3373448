package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aerobench/quadsim/internal/flightlog"
)

func migrateCommand(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "flightlog.db", "Flight log database path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: quadsim migrate [-db path] <up|down|status>")
		os.Exit(1)
	}

	db, err := flightlog.OpenRaw(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to open flight log")
	}
	defer db.Close()

	switch fs.Arg(0) {
	case "up":
		if err := db.MigrateUp(); err != nil {
			log.Fatal().Err(err).Msg("migration up failed")
		}
		log.Info().Msg("all migrations applied")
	case "down":
		if err := db.MigrateDown(); err != nil {
			log.Fatal().Err(err).Msg("migration down failed")
		}
		log.Info().Msg("rolled back one migration")
	case "status":
		version, dirty, err := db.MigrateVersion()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read migration version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migration status")
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate action: %s\n", fs.Arg(0))
		os.Exit(1)
	}
}
