// Command quick-classifier prints a relevance verdict for one job posting.
package main

import (
	"os"

	"github.com/spigell/job-scorer/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteClassifier(os.Args[1:]))
}
