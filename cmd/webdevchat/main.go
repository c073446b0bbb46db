package main

import (
	"os"

	"github.com/hupe1980/webdevchat/cmd/webdevchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
