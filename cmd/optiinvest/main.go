package main

import (
	"os"

	"github.com/anaysomani05/opti-invest/cmd/optiinvest/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
