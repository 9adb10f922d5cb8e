// Command formctl runs, checks and edits form scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/form/cmd/formctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
