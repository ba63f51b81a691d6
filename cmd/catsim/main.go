// Command catsim generates compound astronomical catalogs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/catsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
