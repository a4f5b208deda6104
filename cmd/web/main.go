// Command web runs the brain-age pipeline HTTP service: webhook ingestion,
// background reprocessing, canonical-record lookups, scoring, and exports.
package main

import (
	"context"
	"fmt"
	"os"

	"brainage/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("application terminated", "error", err)
		os.Exit(1)
	}
}
