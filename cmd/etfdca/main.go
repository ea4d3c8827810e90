package main

import (
	"os"
	// The asof cutoff depends on America/New_York; embed tzdata so the
	// binary resolves it on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/minghuang/etfdca/cmd/etfdca/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
