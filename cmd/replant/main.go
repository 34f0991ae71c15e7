package main

import (
	"fmt"
	"os"

	"replant/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "replant: %v\n", err)
		os.Exit(1)
	}
}
