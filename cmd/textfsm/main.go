// Command textfsm parses device CLI output with TextFSM templates.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/textfsm/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Errors the formatter already wrote are not printed again.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
