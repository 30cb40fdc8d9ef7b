// Package main is the entry point for the pipeterm CLI binary.
package main

import (
	"os"

	cli "pipeterm/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
