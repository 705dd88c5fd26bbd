package main

import (
	"os"

	"github.com/claimlens/claimlens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
