package main

import (
	"os"

	"github.com/openclaw/claw-dex-client-go/cmd/dexctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
