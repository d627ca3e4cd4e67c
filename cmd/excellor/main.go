// Command excellor is the entry point for the excellor study-document
// retrieval service. It provides a CLI for corpus management and an HTTP
// server exposing upload, search, and grounded chat endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/nikzart/excellor-ai/cmd/excellor/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
