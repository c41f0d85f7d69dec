package main

import (
	"os"

	"github.com/go-tick/remind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
