// Command hyperdem compiles noisy circuits into decoding hypergraphs and
// decodes detection events.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hyperdem/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
