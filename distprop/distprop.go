// Package distprop models how a stage's output rows are redistributed to
// its parent stage: the Distribution descriptor and the wire-level
// ExchangeInfo it compiles down to.
//
// Grounded in original_source's Distribution::{Single,HashShard} and in the
// teacher's sql/plan/exchange_test.go, which exercises a real Exchange node
// parameterized by a partition count.
package distprop

// Mode tags which redistribution strategy an ExchangeInfo carries. It is a
// plain enum because the scheduler this package hands off to (out of
// scope, see spec.md §1) only needs to switch on it, never decode a
// payload the fragmenter itself understands.
type Mode int

const (
	// Single sends all rows to a single consumer. Used unconditionally
	// for the root stage's exchange_info.
	Single Mode = iota
	// HashShard partitions rows across the parent's parallel units by a
	// hash of HashKeys.
	HashShard
	// Broadcast replicates every row to every parallel unit of the
	// parent stage.
	Broadcast
	// RoundRobin assigns rows to parallel units in round-robin order,
	// ignoring row content.
	RoundRobin
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "Single"
	case HashShard:
		return "HashShard"
	case Broadcast:
		return "Broadcast"
	case RoundRobin:
		return "RoundRobin"
	default:
		return "Unknown"
	}
}

// ExchangeInfo is the opaque wire payload the scheduler consumes verbatim
// to configure a stage-to-stage shuffle. The fragmenter never inspects its
// contents after construction; it is attached to a Stage and forwarded.
type ExchangeInfo struct {
	Mode        Mode   `json:"mode"`
	Parallelism uint32 `json:"parallelism"`
	HashKeys    []int  `json:"hash_keys,omitempty"`
}

// Distribution is the capability an Exchange plan operator exposes (spec.md
// §6): a way to compile itself into an ExchangeInfo once the consuming
// stage's parallelism is known.
type Distribution interface {
	ToExchangeInfo(parallelism uint32) ExchangeInfo
}

// SingleDist routes every row to one consumer regardless of the requested
// parallelism; used for the root stage and for exchanges that merge a
// parallel stage back down to one stream.
type SingleDist struct{}

func (SingleDist) ToExchangeInfo(parallelism uint32) ExchangeInfo {
	return ExchangeInfo{Mode: Single, Parallelism: parallelism}
}

// HashShardDist partitions by the given column indices.
type HashShardDist struct {
	Keys []int
}

func (h HashShardDist) ToExchangeInfo(parallelism uint32) ExchangeInfo {
	return ExchangeInfo{Mode: HashShard, Parallelism: parallelism, HashKeys: h.Keys}
}

// BroadcastDist replicates every row to every parallel unit.
type BroadcastDist struct{}

func (BroadcastDist) ToExchangeInfo(parallelism uint32) ExchangeInfo {
	return ExchangeInfo{Mode: Broadcast, Parallelism: parallelism}
}

// RoundRobinDist spreads rows evenly without regard to content.
type RoundRobinDist struct{}

func (RoundRobinDist) ToExchangeInfo(parallelism uint32) ExchangeInfo {
	return ExchangeInfo{Mode: RoundRobin, Parallelism: parallelism}
}
