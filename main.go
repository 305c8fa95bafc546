package main

import (
	"os"

	"github.com/TheWizardOz3/gogogadget/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
