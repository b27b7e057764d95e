// Command binxgraph imports binary-analysis exports into Neo4j and queries
// the resulting call graph.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/zero-day-ai/binxgraph"
)

// Exit codes.
const (
	ExitSuccess       = 0
	ExitError         = 1
	ExitImportFailed  = 2
	ExitCancelled     = 4
	ExitInvalidInput  = 5
	ExitNotFound      = 6
	ExitConfigError   = 10
	ExitDatabaseError = 12
)

func main() {
	if err := Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// errImportFailed marks an import that ran but recorded errors.
var errImportFailed = errors.New("import completed with errors")

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, errImportFailed):
		return ExitImportFailed
	case errors.Is(err, errConfig):
		return ExitConfigError
	}
	switch binxgraph.KindOf(err) {
	case binxgraph.KindValidation:
		return ExitInvalidInput
	case binxgraph.KindNotFound:
		return ExitNotFound
	case binxgraph.KindConfiguration:
		return ExitConfigError
	case binxgraph.KindStorage:
		return ExitDatabaseError
	default:
		return ExitError
	}
}
