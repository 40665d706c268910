// Command loreseek serves a game knowledge base over MCP, REST, and an
// OpenAI-compatible chat API, and ingests pre-parsed knowledge chunks
// into its vector tables.
package main

import (
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
