package commands

import (
	"fmt"
	"io"

	"github.com/paramtree/paramtree-go/pkg/log"
)

// RunFilter copies the matching events of a capture file into a new
// capture file and reports how many were written to w.
func RunFilter(path, output string, opts Options, w io.Writer) error {
	if output == "" {
		return fmt.Errorf("output file required")
	}
	filter, err := opts.Filter()
	if err != nil {
		return err
	}

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	err = forEach(path, filter, func(event log.Event) error {
		logger.Log(event)
		count++
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, output)
	return nil
}
