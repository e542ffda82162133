package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	// Container classes register themselves so reflective loads resolve them.
	_ "eta/internal/geometry"
	_ "eta/internal/video"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
