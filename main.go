package main

import (
	"os"

	"github.com/kilianp07/squadopt/cmd"
	"github.com/kilianp07/squadopt/core/squad"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if squad.IsInfeasible(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
