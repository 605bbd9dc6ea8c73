package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagedb/vantage/fragerr"
)

func TestStageGraphBuilderRejectsDuplicateStageID(t *testing.T) {
	b := newStageGraphBuilder()
	stage := &Stage{ID: 0}
	require.NoError(t, b.addNode(stage))

	err := b.addNode(&Stage{ID: 0})
	require.Error(t, err)
	assert.True(t, fragerr.ErrDuplicateStageID.Is(err))
}

func TestStageGraphBuilderLinkToChildRequiresBothIDsAdded(t *testing.T) {
	b := newStageGraphBuilder()
	require.NoError(t, b.addNode(&Stage{ID: 0}))

	err := b.linkToChild(0, 1)
	require.Error(t, err)
	assert.True(t, fragerr.ErrMissingStageID.Is(err))
}

func TestStageGraphBuilderLinkToChildIsIdempotent(t *testing.T) {
	b := newStageGraphBuilder()
	require.NoError(t, b.addNode(&Stage{ID: 0}))
	require.NoError(t, b.addNode(&Stage{ID: 1}))

	require.NoError(t, b.linkToChild(0, 1))
	require.NoError(t, b.linkToChild(0, 1))

	graph, err := b.build(0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []StageID{1}, graph.ChildStages(0))
	assert.ElementsMatch(t, []StageID{0}, graph.ParentStages(1))
}

func TestStageGraphBuilderBuildRejectsUnknownRoot(t *testing.T) {
	b := newStageGraphBuilder()
	require.NoError(t, b.addNode(&Stage{ID: 0}))

	_, err := b.build(7)
	require.Error(t, err)
	assert.True(t, fragerr.ErrMissingStageID.Is(err))
}

func TestStageStringerOmitsFullTree(t *testing.T) {
	s := &Stage{ID: 2, Parallelism: 3, ExchangeInfo: ExchangeInfo{}}
	str := s.String()
	assert.Contains(t, str, "id=2")
	assert.Contains(t, str, "parallelism=3")
}
