package main

import (
	"fmt"
	"os"

	"github.com/anybank/anybank-e2e/cmd/anybank-e2e/commands"
	"github.com/anybank/anybank-e2e/cmd/anybank-e2e/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}
