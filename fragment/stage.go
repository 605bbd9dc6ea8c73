package fragment

import (
	"fmt"

	"github.com/vantagedb/vantage/fragerr"
	"github.com/vantagedb/vantage/queryid"
)

// Stage is one independently-schedulable unit of work: a contiguous
// sub-tree of the input plan that crosses no exchange boundary except
// possibly at its own root (spec.md §3, "Query Stage").
type Stage struct {
	QueryID      queryid.QueryID
	ID           StageID
	Parallelism  uint32
	ExchangeInfo ExchangeInfo
	Root         *ExecutionPlanNode
}

// String prints only the fields useful at a glance in a debug log, mirroring
// the upstream QueryStage's hand-written Debug impl, which deliberately
// omits the full node tree to keep log lines short.
func (s *Stage) String() string {
	return fmt.Sprintf("Stage{id=%d parallelism=%d exchange_info=%s}", s.ID, s.Parallelism, s.ExchangeInfo.Mode)
}

// stageGraphBuilder accumulates stages and maintains the bidirectional edge
// maps as an invariant pair (spec.md §4.2). It is consumed exactly once, by
// build, at the end of Fragmenter.Split.
type stageGraphBuilder struct {
	stages      map[StageID]*Stage
	childEdges  map[StageID]map[StageID]struct{}
	parentEdges map[StageID]map[StageID]struct{}
}

func newStageGraphBuilder() *stageGraphBuilder {
	return &stageGraphBuilder{
		stages:      make(map[StageID]*Stage),
		childEdges:  make(map[StageID]map[StageID]struct{}),
		parentEdges: make(map[StageID]map[StageID]struct{}),
	}
}

// addNode inserts stage into the graph and initializes both of its edge
// sets to empty. Returns ErrDuplicateStageID if stage.ID was already added.
func (b *stageGraphBuilder) addNode(stage *Stage) error {
	if _, exists := b.stages[stage.ID]; exists {
		return errDuplicateStageID(stage.ID)
	}
	b.stages[stage.ID] = stage
	b.childEdges[stage.ID] = make(map[StageID]struct{})
	b.parentEdges[stage.ID] = make(map[StageID]struct{})
	return nil
}

// linkToChild inserts childID into childEdges[parentID] and parentID into
// parentEdges[childID]. Both ids must already have been added; duplicate
// edges are silently idempotent, since the edge sets are sets.
func (b *stageGraphBuilder) linkToChild(parentID, childID StageID) error {
	children, ok := b.childEdges[parentID]
	if !ok {
		return errMissingStageID(parentID)
	}
	parents, ok := b.parentEdges[childID]
	if !ok {
		return errMissingStageID(childID)
	}
	children[childID] = struct{}{}
	parents[parentID] = struct{}{}
	return nil
}

// build consumes the builder and emits an immutable StageGraph rooted at
// rootStageID.
func (b *stageGraphBuilder) build(rootStageID StageID) (*StageGraph, error) {
	if _, ok := b.stages[rootStageID]; !ok {
		return nil, errMissingStageID(rootStageID)
	}
	return &StageGraph{
		rootStageID: rootStageID,
		stages:      b.stages,
		childEdges:  b.childEdges,
		parentEdges: b.parentEdges,
	}, nil
}

// StageGraph is the DAG (in the current design, a tree) of stages produced
// by a single Split call (spec.md §3). It is immutable and safe to share
// across parallel schedulers without synchronization once returned.
type StageGraph struct {
	rootStageID StageID
	stages      map[StageID]*Stage
	childEdges  map[StageID]map[StageID]struct{}
	parentEdges map[StageID]map[StageID]struct{}
}

// RootStageID is always 0.
func (g *StageGraph) RootStageID() StageID { return g.rootStageID }

// Stage looks up a stage by id.
func (g *StageGraph) Stage(id StageID) (*Stage, bool) {
	s, ok := g.stages[id]
	return s, ok
}

// Stages returns every stage in the graph, in no particular order.
func (g *StageGraph) Stages() map[StageID]*Stage {
	return g.stages
}

// ChildStages returns the direct children of id (empty for leaves).
func (g *StageGraph) ChildStages(id StageID) []StageID {
	return setToSlice(g.childEdges[id])
}

// ParentStages returns the direct parents of id (empty for the root).
func (g *StageGraph) ParentStages(id StageID) []StageID {
	return setToSlice(g.parentEdges[id])
}

func setToSlice(s map[StageID]struct{}) []StageID {
	out := make([]StageID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

func errDuplicateStageID(id StageID) error {
	return fragerr.ErrDuplicateStageID.New(uint32(id))
}

func errMissingStageID(id StageID) error {
	return fragerr.ErrMissingStageID.New(uint32(id))
}
