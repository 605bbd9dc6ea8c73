package fragment_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagedb/vantage/cluster"
	"github.com/vantagedb/vantage/distprop"
	"github.com/vantagedb/vantage/fragment"
	"github.com/vantagedb/vantage/planop"
)

func TestQueryParentsErrorsOnUnknownStage(t *testing.T) {
	nm := cluster.NewStaticNodeManager(3)
	scan := planop.NewSeqScan(1, "t", testSchema())
	query, err := fragment.New(nm).Split(context.Background(), scan)
	require.NoError(t, err)

	_, err = query.Parents(fragment.StageID(42))
	assert.Error(t, err)
}

func TestQueryStringerIsShort(t *testing.T) {
	nm := cluster.NewStaticNodeManager(3)
	scan := planop.NewSeqScan(1, "t", testSchema())
	query, err := fragment.New(nm).Split(context.Background(), scan)
	require.NoError(t, err)
	assert.Contains(t, query.String(), "stages=1")
}

// randomPlanBuilder produces a random plan tree over a fixed node-id
// counter, used for the property tests in spec.md §8. Each internal node is
// either a plain Filter (never an exchange boundary) or an Exchange wrapping
// a recursively-generated sub-tree, so the number of exchanges in the
// generated tree is entirely deterministic from the recursion depth and a
// seeded coin flip.
type randomPlanBuilder struct {
	rnd       *rand.Rand
	nextID    planop.ID
	exchanges int
}

func (b *randomPlanBuilder) leaf() planop.Node {
	b.nextID++
	return planop.NewSeqScan(b.nextID, fmt.Sprintf("t%d", b.nextID), testSchema())
}

func (b *randomPlanBuilder) build(depth int) planop.Node {
	if depth <= 0 || b.rnd.Intn(2) == 0 {
		return b.leaf()
	}

	child := b.build(depth - 1)

	if b.rnd.Intn(2) == 0 {
		b.nextID++
		return planop.NewFilter(b.nextID, "true", child, testSchema())
	}

	b.nextID++
	b.exchanges++
	return planop.NewExchange(b.nextID, distprop.HashShardDist{Keys: []int{0}}, child, testSchema())
}

// Property 1 & 6: every edge agrees in both directions, and stage count ==
// 1 + number of exchanges in the input plan.
func TestPropertyEdgesAgreeAndStageCountMatchesExchangeCount(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		b := &randomPlanBuilder{rnd: rand.New(rand.NewSource(seed))}
		root := b.build(6)

		nm := cluster.NewStaticNodeManager(4)
		query, err := fragment.New(nm).Split(context.Background(), root)
		require.NoError(t, err)

		graph := query.Graph()
		for id := range graph.Stages() {
			for _, child := range graph.ChildStages(id) {
				assert.Contains(t, graph.ParentStages(child), id, "seed=%d", seed)
			}
			for _, parent := range graph.ParentStages(id) {
				assert.Contains(t, graph.ChildStages(parent), id, "seed=%d", seed)
			}
		}

		assert.Equal(t, 1+b.exchanges, len(graph.Stages()), "seed=%d", seed)
	}
}

// Property 2: root stage id is 0, parallelism 1, exchange_info Single/1.
func TestPropertyRootStageIsAlwaysSingleParallelismOne(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		b := &randomPlanBuilder{rnd: rand.New(rand.NewSource(seed))}
		root := b.build(5)

		nm := cluster.NewStaticNodeManager(5)
		query, err := fragment.New(nm).Split(context.Background(), root)
		require.NoError(t, err)

		assert.Equal(t, fragment.StageID(0), query.RootStageID())
		rootStage, ok := query.Graph().Stage(0)
		require.True(t, ok)
		assert.EqualValues(t, 1, rootStage.Parallelism)
		assert.Equal(t, distprop.Single, rootStage.ExchangeInfo.Mode)
		assert.EqualValues(t, 1, rootStage.ExchangeInfo.Parallelism)
	}
}

// Property 3: every non-root stage's parallelism equals the worker snapshot.
func TestPropertyNonRootParallelismMatchesWorkerCount(t *testing.T) {
	const workers = 7
	b := &randomPlanBuilder{rnd: rand.New(rand.NewSource(1))}
	root := b.build(6)

	nm := cluster.NewStaticNodeManager(workers)
	query, err := fragment.New(nm).Split(context.Background(), root)
	require.NoError(t, err)

	for id, stage := range query.Graph().Stages() {
		if id == query.RootStageID() {
			continue
		}
		assert.EqualValues(t, workers, stage.Parallelism)
	}
}

// Property 4: exchange nodes always carry a stage id and no children; every
// other node never carries a stage id.
func TestPropertyExchangeNodesAlwaysCarryStageID(t *testing.T) {
	b := &randomPlanBuilder{rnd: rand.New(rand.NewSource(2))}
	root := b.build(6)

	nm := cluster.NewStaticNodeManager(3)
	query, err := fragment.New(nm).Split(context.Background(), root)
	require.NoError(t, err)

	var walk func(n *fragment.ExecutionPlanNode)
	walk = func(n *fragment.ExecutionPlanNode) {
		if n.PlanNodeType == planop.ExchangeType {
			assert.True(t, n.HasStageID())
			assert.Empty(t, n.Children)
		} else {
			assert.False(t, n.HasStageID())
		}
		for _, c := range n.Children {
			walk(c)
		}
	}

	for _, stage := range query.Graph().Stages() {
		walk(stage.Root)
	}
}

// Property 5: topo order is a permutation where every child precedes its
// parents.
func TestPropertyTopoOrderIsValidPermutation(t *testing.T) {
	b := &randomPlanBuilder{rnd: rand.New(rand.NewSource(3))}
	root := b.build(6)

	nm := cluster.NewStaticNodeManager(3)
	query, err := fragment.New(nm).Split(context.Background(), root)
	require.NoError(t, err)

	order := query.StageIDsByTopoOrder()
	assert.Len(t, order, len(query.Graph().Stages()))

	pos := make(map[fragment.StageID]int, len(order))
	for i, id := range order {
		pos[id] = i
		_, ok := query.Graph().Stage(id)
		assert.True(t, ok)
	}

	for id, stage := range query.Graph().Stages() {
		_ = stage
		for _, child := range query.Graph().ChildStages(id) {
			assert.Less(t, pos[child], pos[id])
		}
	}
}

// Property 7: Split is deterministic given identical inputs.
func TestPropertySplitIsDeterministicAcrossSeeds(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		build := func() planop.Node {
			b := &randomPlanBuilder{rnd: rand.New(rand.NewSource(seed))}
			return b.build(5)
		}

		nm := cluster.NewStaticNodeManager(4)
		q1, err := fragment.New(nm).Split(context.Background(), build())
		require.NoError(t, err)
		q2, err := fragment.New(nm).Split(context.Background(), build())
		require.NoError(t, err)

		f1, err := q1.Fingerprint()
		require.NoError(t, err)
		f2, err := q2.Fingerprint()
		require.NoError(t, err)
		assert.Equal(t, f1, f2, "seed=%d", seed)
	}
}
