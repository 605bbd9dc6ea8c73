package fragment

import (
	"github.com/vantagedb/vantage/planop"
	"github.com/vantagedb/vantage/queryid"
)

// stageBuilderState is the per-stage lifecycle spec.md §4.4 names: Empty ->
// Visiting -> Finished. Finished is terminal; finish enforces it so a bug
// that tries to reuse a builder after finish fails loudly instead of
// silently corrupting an already-published stage.
type stageBuilderState int

const (
	stateEmpty stageBuilderState = iota
	stateVisiting
	stateFinished
)

// queryStageBuilder materializes one stage: its ExecutionPlanNode tree and
// its list of child stages, from a contiguous plan sub-tree that does not
// cross exchange boundaries except at its own root (spec.md §4.3).
type queryStageBuilder struct {
	queryID           queryid.QueryID
	id                StageID
	planRoot          planop.Node
	root              *ExecutionPlanNode
	parallelism       uint32
	parentParallelism *uint32
	exchangeInfo      ExchangeInfo

	childStages []*Stage
	state       stageBuilderState
}

func newQueryStageBuilder(
	root planop.Node,
	id StageID,
	qid queryid.QueryID,
	parallelism uint32,
	parentParallelism *uint32,
	exchangeInfo ExchangeInfo,
) *queryStageBuilder {
	return &queryStageBuilder{
		queryID:           qid,
		id:                id,
		planRoot:          root,
		parallelism:       parallelism,
		parentParallelism: parentParallelism,
		exchangeInfo:      exchangeInfo,
		state:             stateEmpty,
	}
}

// finish wraps the assembled ExecutionPlanNode tree and metadata into a
// Stage, registers it with the graph builder, then links every accumulated
// child stage underneath it (spec.md §4.3's finish contract). It is a
// programming error to call finish before the builder's root has been set
// by a visit pass, or to call it twice.
func (b *queryStageBuilder) finish(graphBuilder *stageGraphBuilder) (*Stage, error) {
	if b.state == stateFinished {
		panic("queryStageBuilder: finish called twice")
	}
	if b.root == nil {
		panic("queryStageBuilder: finish called before any node was visited")
	}

	stage := &Stage{
		QueryID:      b.queryID,
		ID:           b.id,
		Parallelism:  b.parallelism,
		ExchangeInfo: b.exchangeInfo,
		Root:         b.root,
	}

	if err := graphBuilder.addNode(stage); err != nil {
		return nil, err
	}
	for _, child := range b.childStages {
		if err := graphBuilder.linkToChild(b.id, child.ID); err != nil {
			return nil, err
		}
	}

	b.state = stateFinished
	return stage, nil
}
