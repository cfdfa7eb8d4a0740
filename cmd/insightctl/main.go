// Command insightctl runs the survey analyses offline over a YAML question
// catalogue and a long-format responses CSV.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
