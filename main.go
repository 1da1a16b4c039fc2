package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ftahirops/circuittop/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		var exit cmd.ExitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
