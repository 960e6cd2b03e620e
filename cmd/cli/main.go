package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/toolbench/gateway-client/cmd/cli/commands"
)

func main() {
	// A .env next to the binary may carry GATEWAY_* settings; absence is
	// not an error.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
