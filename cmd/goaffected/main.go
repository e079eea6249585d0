// Command goaffected instruments Go sources for execution footprint
// tracing and prints file fingerprints.
//
// Usage:
//
//	goaffected instrument -w ./pkg/*.go   # rewrite files in place
//	goaffected instrument -o out/ a.go    # write instrumented copies
//	goaffected hash $(cat footprint.txt)  # fingerprint recorded files
//	goaffected config                     # show effective configuration
//	goaffected version
package main

import (
	"os"

	"github.com/kolkov/goaffected/cmd/goaffected/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
