// Command jobscore bundles the classifier and the scorer behind one command.
package main

import (
	"os"

	"github.com/spigell/job-scorer/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
