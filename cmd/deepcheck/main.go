package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitAnalysisFailed signals that analyze printed an Error verdict record.
const exitAnalysisFailed = 2

func main() {
	if err := newRootCommand().Execute(); err != nil {
		switch {
		case errors.Is(err, errAnalysisFailed):
			os.Exit(exitAnalysisFailed)
		case !errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
