// Command rete compiles CUE rules into a Rete network and runs facts,
// scenarios and journal replays against it.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rete/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rete: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
