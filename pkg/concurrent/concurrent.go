package concurrent

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/arcade/pkg/sequence"
)

// All runs action for each element in its own goroutine, at most limit at a
// time (limit <= 0 means unbounded). A failure does not stop the others; every
// error is joined into the result.
func All[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for value := range i.Seq() {
		group.Go(func() error {
			if err := action(ctx, value); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return errors.Join(errs...)
}
