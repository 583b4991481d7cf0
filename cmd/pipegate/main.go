package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sourceplane/pipegate/internal/model"
)

// Exit codes. Validation covers bad inputs and unknown templates, catalog
// covers malformed template definitions surfaced at build time.
const (
	exitOK         = 0
	exitRunFailed  = 1
	exitValidation = 2
	exitCatalog    = 3
)

// errRunFailed signals a completed invocation whose verdict is fail. It is
// not printed; the summary already says what failed.
var errRunFailed = errors.New("run failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

func exitCode(err error) int {
	var validationErr *model.ValidationError
	var catalogErr *model.CatalogError

	switch {
	case errors.Is(err, errRunFailed):
		return exitRunFailed
	case errors.As(err, &validationErr):
		return exitValidation
	case errors.As(err, &catalogErr):
		return exitCatalog
	default:
		fmt.Fprintln(os.Stderr, "unexpected:", err)
		return exitValidation
	}
}
