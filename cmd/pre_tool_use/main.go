// PreToolUse hook that gates git commits issued through the shell tool.
//
// A commit is allowed only after the staged Python files pass the fixer
// (with its fixes re-staged) and the test suite passes. Anything else the
// agent runs goes through untouched, and infrastructure problems never
// block the agent.
package main

import (
	"context"
	"os"

	"commitgate/internal/hook"
	"commitgate/internal/protocol"
)

func main() {
	if err := run(); err != nil {
		protocol.WriteError(os.Stdout, "%v", err)
	}
	os.Exit(0)
}

func run() error {
	return hook.Handle(context.Background(), os.Stdin, os.Stdout, os.Stderr)
}
