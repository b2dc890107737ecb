// Package race runs long-lived activities against each other.
//
// The device process has two activities, serving protocol requests and
// polling hardware. Neither is expected to return. When one does, for any
// reason, the other is cancelled and the process ends with the first error.
package race

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrNoActivities is returned by Run when called without activities.
var ErrNoActivities = errors.New("no activities to run")

// Activity is a named unit of work. Run must return once ctx is cancelled.
type Activity struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result describes how an activity finished.
type Result struct {
	Name string
	Err  error
}

// Run starts every activity and waits for all of them. The first activity to
// return, with or without an error, cancels the shared context. Run returns
// the first non-nil error. context.Canceled from an activity whose context
// was already cancelled, by a peer finishing or by ctx, is a clean exit.
// Run does not return before every activity has returned.
func Run(ctx context.Context, activities ...Activity) error {
	_, err := RunWithResults(ctx, activities...)
	return err
}

// RunWithResults behaves like Run and also reports how each activity ended,
// in completion order.
func RunWithResults(ctx context.Context, activities ...Activity) ([]Result, error) {
	if len(activities) == 0 {
		return nil, ErrNoActivities
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(raceCtx)
	results := make(chan Result, len(activities))

	for _, a := range activities {
		g.Go(func() error {
			err := a.Run(gctx)
			if errors.Is(err, context.Canceled) && gctx.Err() != nil {
				err = nil
			}
			results <- Result{Name: a.Name, Err: err}

			// The first finisher ends the race even when it returns nil;
			// errgroup only cancels on error.
			cancel()
			if err != nil {
				return fmt.Errorf("%s: %w", a.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	close(results)

	out := make([]Result, 0, len(activities))
	for r := range results {
		out = append(out, r)
	}
	return out, err
}
