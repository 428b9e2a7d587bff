package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/gabrielpoca/journal/internal/session"
	"github.com/gabrielpoca/journal/internal/store"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Options configure a Coordinator.
type Options struct {
	// BaseURL is the remote server root; each user's database lives under it.
	BaseURL string
	// LongpollTimeout bounds one change-feed request on the remote side.
	LongpollTimeout time.Duration
	// PushInterval is the fallback push cadence; local writes also wake the
	// push loop immediately.
	PushInterval time.Duration
	// MaxBackoff caps the retry delay after transport failures.
	MaxBackoff time.Duration
	// Logger defaults to slog when nil.
	Logger logging.Logger
}

// Coordinator runs live bidirectional replication between open stores and
// their per-user remote databases. Replication survives transport failures by
// retrying with capped exponential backoff; only setup failures surface to
// the caller.
type Coordinator struct {
	opts Options
	log  logging.Logger

	// newRemote is replaced in tests
	newRemote func(baseURL, username, token string) (Remote, error)

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewCoordinator builds a coordinator. Its StartSync satisfies
// session.SyncFunc and is wired into the gate at startup.
func NewCoordinator(opts Options) *Coordinator {
	if opts.LongpollTimeout <= 0 {
		opts.LongpollTimeout = 25 * time.Second
	}
	if opts.PushInterval <= 0 {
		opts.PushInterval = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewSlogLogger(slog.Default())
	}
	return &Coordinator{
		opts: opts,
		log:  opts.Logger,
		newRemote: func(baseURL, username, token string) (Remote, error) {
			return NewCouchClient(baseURL, username, token)
		},
		active: make(map[string]context.CancelFunc),
	}
}

// StartSync establishes replication for one (store, user) pair and returns
// once the remote is verified reachable; the pull and push loops then run
// until ctx is cancelled or Stop is called. Calling it again for a pair that
// is already replicating is a no-op.
func (c *Coordinator) StartSync(ctx context.Context, st *store.Store, sess session.Session) error {
	key := st.Path() + "|" + sess.Key()

	c.mu.Lock()
	if _, running := c.active[key]; running {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	remote, err := c.newRemote(c.opts.BaseURL, sess.Name, sess.Token)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrReplication, err)
	}
	if err := remote.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrReplication, err)
	}

	// a missing view only degrades filtering, so setup continues without it
	if err := EnsureViews(ctx, remote); err != nil {
		c.log.Warn(ctx, "failed to set up remote views", "user", sess.Name, "error", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if _, running := c.active[key]; running {
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.active[key] = cancel
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)
	for _, collection := range store.Collections() {
		collection := collection
		g.Go(func() error { return c.pullLoop(gctx, st, remote, collection) })
		g.Go(func() error { return c.pushLoop(gctx, st, remote, collection) })
	}

	go func() {
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error(runCtx, "replication stopped", "user", sess.Name, "error", err)
		}
		cancel()
		c.mu.Lock()
		delete(c.active, key)
		c.mu.Unlock()
	}()

	c.log.Info(ctx, "replication started", "user", sess.Name, "store", st.Path())
	return nil
}

// Stop cancels every running replication.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, cancel := range c.active {
		cancel()
		delete(c.active, key)
	}
}

func (c *Coordinator) backoff() retry.Backoff {
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithCappedDuration(c.opts.MaxBackoff, b)
	b = retry.WithJitter(250*time.Millisecond, b)
	return b
}

// pullLoop follows the remote change feed for one collection and folds every
// document into the local store, checkpointing the cursor after each batch.
// Longpolling makes remote writes land locally without polling delay.
func (c *Coordinator) pullLoop(ctx context.Context, st *store.Store, remote Remote, collection string) error {
	since, err := st.Checkpoint(ctx, collection)
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		var res *ChangesResult
		err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
			r, err := remote.Changes(ctx, ChangesOptions{
				Since:    since,
				View:     viewFor(collection),
				Longpoll: true,
				Timeout:  c.opts.LongpollTimeout,
			})
			if err != nil {
				c.log.Debug(ctx, "change feed request failed", "collection", collection, "error", err)
				return retry.RetryableError(err)
			}
			res = r
			return nil
		})
		if err != nil {
			// retry.Do only gives up when ctx ends
			return nil
		}

		applyFailed := false
		for _, change := range res.Results {
			if change.Deleted || strings.HasPrefix(change.ID, "_design/") || change.Doc == nil {
				continue
			}
			doc := change.Doc
			rev, _ := doc["_rev"].(string)
			delete(doc, "_rev")
			if _, ok := doc["id"].(string); !ok && change.ID != "" {
				doc["id"] = change.ID
			}
			delete(doc, "_id")

			if err := st.ApplyRemote(ctx, collection, doc, rev); err != nil {
				if errors.Is(err, common.ErrInvalidDocument) {
					// a malformed document must not stall the feed
					c.log.Error(ctx, "skipping invalid remote document",
						"collection", collection, "id", change.ID, "error", err)
					continue
				}
				// a store failure may clear up; keep the checkpoint behind the
				// document so the next batch retries it
				c.log.Error(ctx, "failed to apply remote document",
					"collection", collection, "id", change.ID, "error", err)
				applyFailed = true
				break
			}
		}

		if applyFailed {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.opts.MaxBackoff):
			}
			continue
		}

		if res.LastSeq != "" && res.LastSeq != since {
			since = res.LastSeq
			if err := st.SetCheckpoint(ctx, collection, since); err != nil {
				return err
			}
		}
	}
}

// pushLoop uploads locally modified documents for one collection. It wakes on
// every committed local write and on a fallback ticker, so documents dirtied
// while the remote was unreachable eventually drain.
func (c *Coordinator) pushLoop(ctx context.Context, st *store.Store, remote Remote, collection string) error {
	sub := st.Changes(collection)
	defer sub.Cancel()

	ticker := time.NewTicker(c.opts.PushInterval)
	defer ticker.Stop()

	if err := c.pushPending(ctx, st, remote, collection); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.C:
			if !ok {
				return nil
			}
		case <-ticker.C:
		}
		if err := c.pushPending(ctx, st, remote, collection); err != nil {
			return err
		}
	}
}

func (c *Coordinator) pushPending(ctx context.Context, st *store.Store, remote Remote, collection string) error {
	docs, err := st.PendingDocs(ctx, collection)
	if err != nil {
		return err
	}

	for _, pending := range docs {
		doc := make(map[string]any, len(pending.Doc)+1)
		for k, v := range pending.Doc {
			doc[k] = v
		}
		doc["version"] = pending.Version

		rev := pending.Rev
		var newRev string
		err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
			r, err := remote.PutDoc(ctx, pending.ID, rev, doc)
			if errors.Is(err, ErrConflict) {
				// last write wins: adopt the remote's revision and overwrite
				_, remoteRev, gerr := remote.GetDoc(ctx, pending.ID)
				if gerr != nil && !errors.Is(gerr, common.ErrNotFound) {
					return retry.RetryableError(gerr)
				}
				rev = remoteRev
				return retry.RetryableError(err)
			}
			if err != nil {
				c.log.Debug(ctx, "push failed", "collection", collection, "id", pending.ID, "error", err)
				return retry.RetryableError(err)
			}
			newRev = r
			return nil
		})
		if err != nil {
			// ctx ended mid-push; the dirty flag keeps the document queued
			return nil
		}

		if err := st.MarkSynced(ctx, collection, pending.ID, newRev); err != nil {
			return err
		}
		c.log.Debug(ctx, "pushed document", "collection", collection, "id", pending.ID, "rev", newRev)
	}
	return nil
}
