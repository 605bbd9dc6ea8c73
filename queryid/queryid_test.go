package queryid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vantagedb/vantage/queryid"
)

func TestNewProducesDistinctIDs(t *testing.T) {
	a := queryid.New()
	b := queryid.New()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a.String())
}
