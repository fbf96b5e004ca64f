package main

import (
	"fmt"
	"os"

	"github.com/cosmo-local-credit/rewards/publish/command"
)

func main() {
	if err := command.NewRootCommand(command.DefaultRuntime()).Execute(); err != nil {
		exitErr(err)
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
