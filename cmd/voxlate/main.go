// Command voxlate is the real-time speech interpreter CLI.
package main

import (
	"os"

	"github.com/voxlate/voxlate/cmd/voxlate/commands"
	"github.com/voxlate/voxlate/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
