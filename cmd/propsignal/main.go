package main

import (
	"os"

	"github.com/dxbintel/propsignal/cmd/propsignal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
