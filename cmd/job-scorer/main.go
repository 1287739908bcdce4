// Command job-scorer scores one job description against a résumé.
package main

import (
	"os"

	"github.com/spigell/job-scorer/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteScorer(os.Args[1:]))
}
