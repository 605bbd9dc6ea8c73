// Package cluster supplies the fragmenter's one external collaborator
// (spec.md §6): a read-only view of how many workers are currently live,
// used to infer non-root stage parallelism.
package cluster

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
)

// NodeManager is the capability spec.md §6 requires: a snapshot count of
// live workers. Implementations may be backed by mutable shared state; the
// fragmenter only ever reads a single snapshot per call and never assumes
// stability across calls within one Split invocation (spec.md §5).
type NodeManager interface {
	WorkerNodeCount(ctx context.Context) (uint32, error)
}

// StaticNodeManager captures a worker count once, at construction time, and
// never changes it. This is the manager spec.md §5 describes as required
// "for implementations that require a single consistent snapshot" across an
// entire Split call.
type StaticNodeManager struct {
	count uint32
}

// NewStaticNodeManager builds a manager reporting count workers. It performs
// no validation of its own; NewStaticNodeManagerFromSigned is the
// constructor that rejects a negative signed count with a wrapped error.
func NewStaticNodeManager(count uint32) *StaticNodeManager {
	return &StaticNodeManager{count: count}
}

// NewStaticNodeManagerFromSigned validates a caller-supplied signed count
// (e.g. parsed from a flag or a config file) before wrapping it.
func NewStaticNodeManagerFromSigned(count int) (*StaticNodeManager, error) {
	if count < 0 {
		return nil, errors.Wrapf(errInvalidWorkerCount, "got %d", count)
	}
	return NewStaticNodeManager(uint32(count)), nil
}

var errInvalidWorkerCount = errors.New("worker node count must be non-negative")

func (s *StaticNodeManager) WorkerNodeCount(context.Context) (uint32, error) {
	return s.count, nil
}

// AtomicNodeManager is backed by an atomically-updated counter, modeling a
// live membership-change subsystem (spec.md §5). Watch drains updates from
// a membership feed and installs them; WorkerNodeCount always returns the
// latest installed value, with no guarantee of stability across calls.
type AtomicNodeManager struct {
	count atomic.Uint32
}

// NewAtomicNodeManager starts with an initial snapshot.
func NewAtomicNodeManager(initial uint32) *AtomicNodeManager {
	m := &AtomicNodeManager{}
	m.count.Store(initial)
	return m
}

func (a *AtomicNodeManager) WorkerNodeCount(context.Context) (uint32, error) {
	return a.count.Load(), nil
}

// Watch consumes membership-change notifications from updates until the
// channel is closed or ctx is cancelled, updating the live count as they
// arrive. It is meant to be run in its own goroutine by the caller.
func (a *AtomicNodeManager) Watch(ctx context.Context, updates <-chan uint32) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-updates:
			if !ok {
				return
			}
			a.count.Store(n)
		}
	}
}
