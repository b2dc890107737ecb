package commands

import (
	"fmt"
	"io"

	"github.com/mash-protocol/mash-sensor/pkg/log"
)

// RunFilter copies the events of path matching filter into a new log file
// and reports the count on w.
func RunFilter(path, output string, filter log.Filter, w io.Writer) error {
	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	err = forEach(path, filter, func(event log.Event) error {
		logger.Log(event)
		count++
		return nil
	})
	if closeErr := logger.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write output: %w", closeErr)
	}
	if err != nil {
		return err
	}
	if dropped := logger.Dropped(); dropped > 0 {
		return fmt.Errorf("failed to encode %d events", dropped)
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, output)
	return nil
}
