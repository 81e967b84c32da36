// Command talkcode answers questions about a local codebase. It indexes the
// directory into a persisted vector store, retrieves the most relevant chunks
// for each question, and streams grounded answers from a local or OpenAI
// chat model.
package main

import (
	"fmt"
	"os"

	"github.com/talkcode/talkcode-go/cmd/talkcode/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
