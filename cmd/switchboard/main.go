package main

import (
	"fmt"
	"os"

	"github.com/tillberg/autorestart"

	"github.com/voxhollow/switchboard/internal/cli"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
