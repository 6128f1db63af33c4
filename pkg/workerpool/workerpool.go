// Package workerpool provides simple concurrent processing utilities.
package workerpool

import (
	"context"
	"sync"
)

// Failure pairs a work item with the error its processing returned.
type Failure[T any] struct {
	Item T
	Err  error
}

// Process runs process for every item on workerCount goroutines.
// Unlike a fail-fast pool it keeps going after an item fails and returns
// every failure, so callers can retry just those items. Items not started
// before ctx is canceled are reported as failures carrying ctx.Err().
func Process[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
) []Failure[T] {
	if workerCount <= 0 {
		workerCount = 1
	}

	tasks := make(chan T)
	var (
		mu       sync.Mutex
		failures []Failure[T]
		wg       sync.WaitGroup
	)
	fail := func(item T, err error) {
		mu.Lock()
		failures = append(failures, Failure[T]{Item: item, Err: err})
		mu.Unlock()
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := process(ctx, item); err != nil {
					fail(item, err)
				}
			}
		}()
	}

	dispatch(ctx, items, tasks, fail)
	close(tasks)
	wg.Wait()

	return failures
}

func dispatch[T any](ctx context.Context, items []T, tasks chan<- T, fail func(T, error)) {
	for i, item := range items {
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case tasks <- item:
				continue
			}
		}
		for _, rest := range items[i:] {
			fail(rest, ctx.Err())
		}
		return
	}
}
