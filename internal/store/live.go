package store

import (
	"context"

	"github.com/gabrielpoca/journal/internal/live"
)

// Changes subscribes to committed writes on one collection. Replication's
// push side uses it to wake up as soon as a local document turns dirty.
func (s *Store) Changes(collection string) *live.Subscription {
	return s.hub.Subscribe(func(ev live.Event) bool {
		return ev.Collection == collection
	})
}

// watchCollection turns a snapshot query into a live one: it emits the
// current result set immediately and re-runs fetch after every committed
// write to the collection that passes match (nil match accepts all ids).
//
// The returned cancel is safe to call more than once; the channel closes
// when the watch ends. A fetch error ends the feed; by then the store is
// closing or the database is gone, and subscribers re-establish watches on
// reopen.
func watchCollection[T any](
	ctx context.Context,
	s *Store,
	collection string,
	match func(id string) bool,
	fetch func(ctx context.Context) ([]T, error),
) (<-chan []T, func()) {
	sub := s.hub.Subscribe(func(ev live.Event) bool {
		if ev.Collection != collection {
			return false
		}
		return match == nil || match(ev.ID)
	})

	out := make(chan []T, 1)

	go func() {
		defer close(out)
		defer sub.Cancel()

		// non-blocking delivery with coalescing: a slow consumer sees the
		// newest result set, never a stale backlog
		emit := func() bool {
			result, err := fetch(ctx)
			if err != nil {
				s.log.Error(ctx, "live query failed", "collection", collection, "error", err)
				return false
			}
			select {
			case out <- result:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- result:
				default:
				}
			}
			return true
		}

		if !emit() {
			return
		}

		for {
			select {
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Cancel
}
