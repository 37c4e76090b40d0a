package viewsync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Fetcher[T any] func(ctx context.Context) (T, error)

// Snapshot is what a view currently shows.
type Snapshot[T any] struct {
	Data      T
	Loaded    bool
	FetchedAt time.Time
	Version   uint64
	// Stale is set when an invalidation newer than Data has been observed
	// and the refetch has not landed yet.
	Stale bool
	Err   error
}

// View is the client side of the contract. It refetches on mount, on focus,
// on every invalidation and, when an interval is set, on a fixed poll.
type View[T any] struct {
	name     string
	fetch    Fetcher[T]
	interval time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	data      T
	loaded    bool
	fetchedAt time.Time
	fetchedV  uint64
	observedV uint64
	lastErr   error
	onRefresh func(Snapshot[T])

	trigger chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewView builds an unmounted view. A zero interval disables polling.
func NewView[T any](name string, fetch Fetcher[T], interval time.Duration, logger *zap.Logger) *View[T] {
	return &View[T]{
		name:     name,
		fetch:    fetch,
		interval: interval,
		logger:   logger.With(zap.String("view", name)),
		trigger:  make(chan struct{}, 1),
	}
}

// OnRefresh registers a callback run after each successful fetch. Set it
// before Mount.
func (v *View[T]) OnRefresh(fn func(Snapshot[T])) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onRefresh = fn
}

// Mount performs the first fetch synchronously and starts the refresh loop.
// A failed first fetch is returned but the loop still runs.
func (v *View[T]) Mount(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})

	err := v.refresh(loopCtx)
	go v.loop(loopCtx)
	return err
}

// Unmount stops polling and waits for the loop to exit.
func (v *View[T]) Unmount() {
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
	v.cancel = nil
}

func (v *View[T]) Focus() {
	v.kick()
}

// Invalidate records an invalidation version and schedules a refetch.
// Versions at or below the one already seen are ignored.
func (v *View[T]) Invalidate(version uint64) {
	v.mu.Lock()
	if version != 0 && version <= v.observedV {
		v.mu.Unlock()
		return
	}
	if version > v.observedV {
		v.observedV = version
	}
	v.mu.Unlock()
	v.kick()
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshotLocked()
}

func (v *View[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Data:      v.data,
		Loaded:    v.loaded,
		FetchedAt: v.fetchedAt,
		Version:   v.fetchedV,
		Stale:     v.observedV > v.fetchedV,
		Err:       v.lastErr,
	}
}

func (v *View[T]) kick() {
	select {
	case v.trigger <- struct{}{}:
	default:
	}
}

func (v *View[T]) loop(ctx context.Context) {
	defer close(v.done)

	var tick <-chan time.Time
	if v.interval > 0 {
		ticker := time.NewTicker(v.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.trigger:
		case <-tick:
		}
		_ = v.refresh(ctx)
	}
}

func (v *View[T]) refresh(ctx context.Context) error {
	v.mu.RLock()
	target := v.observedV
	v.mu.RUnlock()

	data, err := v.fetch(ctx)

	v.mu.Lock()
	if err != nil {
		v.lastErr = err
		v.mu.Unlock()
		if ctx.Err() == nil {
			v.logger.Warn("view refresh failed", zap.Error(err))
		}
		return err
	}

	v.data = data
	v.loaded = true
	v.fetchedAt = time.Now()
	if target > v.fetchedV {
		v.fetchedV = target
	}
	v.lastErr = nil
	snap := v.snapshotLocked()
	onRefresh := v.onRefresh
	v.mu.Unlock()

	if onRefresh != nil {
		onRefresh(snap)
	}
	return nil
}
