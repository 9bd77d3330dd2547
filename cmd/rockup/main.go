package main

import (
	"os"

	"github.com/veedy-dev/rockup/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
