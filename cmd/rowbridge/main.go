// Command rowbridge converts tabular data among CSV, JSON, and Excel
// workbooks, with optional rule-based or scripted transformations.
package main

import (
	"os"

	"github.com/rowbridge/rowbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
