// Command commitgate runs and inspects the pre-commit gate outside the hook
// host: evaluate the staged changes by hand, check how a command would be
// classified, print the effective config or browse past decisions.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errBlocked) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
