package main

import (
	"fmt"
	"os"

	"github.com/smartcomputer-ai/agent-os-sub000/cmd/grit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
