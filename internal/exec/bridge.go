package exec

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/txagent/internal/tx"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds concurrent in-flight RPC work when no worker count is configured.
const DefaultWorkers = 4

// Work is the blocking segment handed to the bridge.
type Work func(ctx context.Context) (common.Hash, error)

type outcome struct {
	hash common.Hash
	err  error
}

// Bridge runs blocking signing/broadcast work on a bounded set of worker goroutines and
// hands the result back over a channel. Its own failures are always bridge-kind errors;
// whatever the work returns is passed through untouched.
type Bridge struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewBridge creates a bridge with the given number of workers.
func NewBridge(workers int) *Bridge {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Bridge{sem: semaphore.NewWeighted(int64(workers))}
}

// handoff decides, under one lock, whether a result goes to the waiting caller or to
// the late callback after the caller gave up.
type handoff struct {
	mu        sync.Mutex
	delivered bool
	abandoned bool
}

// Submit runs work on a worker and waits for it. Work runs with a context detached from
// the caller's cancellation: once a broadcast starts it is never interrupted. If ctx ends
// first, Submit returns BRIDGE_ABORTED and late, when non-nil, later receives the real result.
func (b *Bridge) Submit(ctx context.Context, work Work, late func(common.Hash, error)) (common.Hash, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return common.Hash{}, tx.New(tx.CodeBridgeClosed, "executor is shutting down")
	}
	b.wg.Add(1)
	b.mu.RUnlock()

	if err := b.sem.Acquire(ctx, 1); err != nil {
		b.wg.Done()
		return common.Hash{}, tx.Wrap(tx.CodeBridgeRejected, err, "no worker available")
	}

	var h handoff
	done := make(chan outcome, 1)
	workCtx := context.WithoutCancel(ctx)

	go func() {
		defer b.wg.Done()
		defer b.sem.Release(1)

		out := runWork(workCtx, work)

		h.mu.Lock()
		if h.abandoned {
			h.mu.Unlock()
			if late != nil {
				late(out.hash, out.err)
			}
			return
		}
		h.delivered = true
		done <- out
		h.mu.Unlock()
	}()

	select {
	case out := <-done:
		return out.hash, out.err
	case <-ctx.Done():
		h.mu.Lock()
		if h.delivered {
			h.mu.Unlock()
			out := <-done
			return out.hash, out.err
		}
		h.abandoned = true
		h.mu.Unlock()
		return common.Hash{}, tx.Wrap(tx.CodeBridgeAborted, ctx.Err(), "caller stopped waiting; submission may still complete")
	}
}

func runWork(ctx context.Context, work Work) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: tx.New(tx.CodeBridgeAborted, "worker panicked: %v", r)}
		}
	}()
	hash, err := work(ctx)
	return outcome{hash: hash, err: err}
}

// Close stops accepting work and waits for in-flight work to finish.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
