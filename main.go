package main

import (
	"context"
	"fmt"
	"os"

	"ramwatch/internal/app"
)

func main() {
	application, err := app.New(os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		if !app.IsHelpError(err) {
			fmt.Fprintf(os.Stderr, "ramwatch: %v\n", err)
		}
		os.Exit(app.ExitCode(err))
	}

	os.Exit(application.Run(context.Background()))
}
