// Command learnctl administers a pai-learn deployment: it validates catalog
// documents, manages learner accounts and exports progress reports using the
// same LEARN_ configuration as the server.
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
