// Package fragment implements the batch plan fragmenter: it takes an
// already-optimized plan tree (package planop) and rewrites it into a DAG
// of independently-schedulable stages (spec.md §§3-4).
package fragment

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/vantagedb/vantage/cluster"
	"github.com/vantagedb/vantage/distprop"
	"github.com/vantagedb/vantage/fragerr"
	"github.com/vantagedb/vantage/planop"
	"github.com/vantagedb/vantage/queryid"
)

// Fragmenter is the driver described in spec.md §4.4: it allocates stage
// ids, infers parallelism from a worker-node view, recursively splits at
// each exchange, and emits the final Query.
//
// A Fragmenter is single-use: Split consumes it and must be called at most
// once per instance (spec.md §4.4).
type Fragmenter struct {
	queryID      queryid.QueryID
	nextStageID  StageID
	graphBuilder *stageGraphBuilder
	workerNodes  cluster.NodeManager
	log          *logrus.Entry
	tracer       opentracing.Tracer
	consumed     bool
}

// Option configures a Fragmenter at construction time.
type Option func(*Fragmenter)

// WithLogger overrides the default logrus.StandardLogger(). A nil logger
// leaves the default in place.
func WithLogger(l *logrus.Logger) Option {
	return func(f *Fragmenter) {
		if l == nil {
			return
		}
		f.log = l.WithField("component", "fragmenter")
	}
}

// WithTracer overrides the default opentracing.GlobalTracer().
func WithTracer(t opentracing.Tracer) Option {
	return func(f *Fragmenter) {
		f.tracer = t
	}
}

// New constructs a fresh Fragmenter: next_stage_id = 0, an empty stage
// graph builder, and a freshly generated query id (spec.md §4.4).
func New(workerNodes cluster.NodeManager, opts ...Option) *Fragmenter {
	f := &Fragmenter{
		queryID:      queryid.New(),
		nextStageID:  0,
		graphBuilder: newStageGraphBuilder(),
		workerNodes:  workerNodes,
		log:          logrus.WithField("component", "fragmenter"),
		tracer:       opentracing.GlobalTracer(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Split consumes the Fragmenter and returns a Query whose StageGraph
// satisfies every invariant in spec.md §3. It must be called at most once.
func (f *Fragmenter) Split(ctx context.Context, planRoot planop.Node) (*Query, error) {
	if f.consumed {
		panic("fragment.Fragmenter: Split called more than once")
	}
	f.consumed = true

	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, f.tracer, "vantage.fragment.split")
	defer span.Finish()
	span.SetTag("query_id", string(f.queryID))

	rootStage, err := f.newStage(ctx, planRoot, nil, nil)
	if err != nil {
		return nil, err
	}

	graph, err := f.graphBuilder.build(rootStage.ID)
	if err != nil {
		return nil, err
	}

	span.SetTag("stage_count", len(graph.stages))
	f.log.WithFields(logrus.Fields{
		"query_id": f.queryID,
		"stages":   len(graph.stages),
	}).Debug("split complete")

	return &Query{id: f.queryID, graph: graph}, nil
}

// newStage allocates the next StageId, chooses parallelism, performs the
// depth-first visit of root, and finishes the stage (spec.md §4.4 step 2).
//
// parentParallelism is nil exactly for the root stage; exchangeInfo is nil
// exactly for the root stage, which is always Single/1 regardless of what
// the caller passes.
func (f *Fragmenter) newStage(
	ctx context.Context,
	root planop.Node,
	parentParallelism *uint32,
	exchangeInfo *ExchangeInfo,
) (*Stage, error) {
	id := f.nextStageID
	f.nextStageID++

	var parallelism uint32
	if parentParallelism == nil {
		// Root stage: forced to 1 regardless of cluster size (spec.md
		// §4.4 step 1) — the client consumes a single stream.
		parallelism = 1
	} else {
		count, err := f.workerNodes.WorkerNodeCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("stage %d: reading worker node count: %w", id, err)
		}
		if count == 0 {
			return nil, fragerr.ErrEmptyCluster.New(uint32(id))
		}
		parallelism = count
	}

	info := distprop.ExchangeInfo{}
	if exchangeInfo != nil {
		info = *exchangeInfo
	} else {
		// Root stage: output distribution is always Single, the client
		// consumes a single stream (spec.md §4.4 step 1).
		info = distprop.SingleDist{}.ToExchangeInfo(1)
	}

	builder := newQueryStageBuilder(root, id, f.queryID, parallelism, parentParallelism, info)
	builder.state = stateVisiting

	var parentParallelismField interface{}
	if parentParallelism != nil {
		parentParallelismField = *parentParallelism
	}
	f.log.WithFields(logrus.Fields{
		"stage_id":           id,
		"parallelism":        parallelism,
		"parent_parallelism": parentParallelismField,
		"plan_node_type":     root.NodeType(),
	}).Debug("creating stage")

	if err := f.visitNode(ctx, root, builder, nil); err != nil {
		return nil, err
	}

	return builder.finish(f.graphBuilder)
}

// visitNode implements spec.md §4.4 step 3: it dispatches exchange
// operators to visitExchange, and for everything else creates an
// ExecutionPlanNode, recurses into each child in input order, then attaches
// the new node to its parent (or installs it as the builder's root).
func (f *Fragmenter) visitNode(
	ctx context.Context,
	node planop.Node,
	builder *queryStageBuilder,
	parentExecNode *ExecutionPlanNode,
) error {
	if node.NodeType() == planop.ExchangeType {
		return f.visitExchange(ctx, node, builder, parentExecNode)
	}

	execNode := newExecutionPlanNode(node)

	for _, child := range node.Inputs() {
		if err := f.visitNode(ctx, child, builder, execNode); err != nil {
			return err
		}
	}

	attach(builder, parentExecNode, execNode)
	return nil
}

// visitExchange implements spec.md §4.4 step 4: it creates an
// ExecutionPlanNode for the exchange itself, computes the child stage's
// exchange_info against the *current* builder's parallelism (this stage is
// the consumer), recursively starts a new stage at the exchange's single
// input, and records the child stage for later linkage. The exchange's
// input is never visited under the current stage.
func (f *Fragmenter) visitExchange(
	ctx context.Context,
	node planop.Node,
	builder *queryStageBuilder,
	parentExecNode *ExecutionPlanNode,
) error {
	exchange, ok := node.(planop.Exchanger)
	if !ok {
		return fragerr.ErrMalformedPlan.New(fmt.Sprintf(
			"node %d: tagged Exchange but does not implement distribution", node.PlanBase()))
	}

	inputs := node.Inputs()
	if len(inputs) != 1 {
		return fragerr.ErrMalformedPlan.New(fmt.Sprintf(
			"exchange %d: expected exactly 1 input, got %d", node.PlanBase(), len(inputs)))
	}

	execNode := newExecutionPlanNode(node)

	childExchangeInfo := exchange.Distribution().ToExchangeInfo(builder.parallelism)
	parentParallelism := builder.parallelism

	childStage, err := f.newStage(ctx, inputs[0], &parentParallelism, &childExchangeInfo)
	if err != nil {
		return err
	}
	execNode.setStageID(childStage.ID)

	attach(builder, parentExecNode, execNode)
	builder.childStages = append(builder.childStages, childStage)
	return nil
}

// attach appends execNode to parent's children if parent is non-nil, else
// installs it as the builder's root (spec.md §4.4 step 3's "after
// recursion, attach the new node").
func attach(builder *queryStageBuilder, parent, execNode *ExecutionPlanNode) {
	if parent != nil {
		parent.Children = append(parent.Children, execNode)
	} else {
		builder.root = execNode
	}
}
