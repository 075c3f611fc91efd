// Command flowengine is a harness for running and validating flow documents
// against the engine outside of the companion application proper: a
// catalog directory plus one or more flow JSON files, fed events over
// stdin.
package main

import (
	"fmt"
	"os"

	"github.com/flowcore/flowengine/cmd/flowengine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
