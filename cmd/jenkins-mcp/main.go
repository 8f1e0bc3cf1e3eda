package main

import (
	"errors"
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ece *exitCodeError
		if errors.As(err, &ece) {
			fmt.Fprintln(os.Stderr, "Error:", ece.err)
			os.Exit(ece.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitServeFailure)
	}
}
