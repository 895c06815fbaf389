package main

import (
	"os"

	"github.com/claimdeck/claimdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
