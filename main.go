package main

import (
	"os"

	"github.com/ngochaukiet2005/shuttle-dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
