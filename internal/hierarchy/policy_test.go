package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy{}, p)

	p, err = PolicyByName(PolicyAdjacent)
	require.NoError(t, err)
	assert.Equal(t, AdjacentPolicy{}, p)

	_, err = PolicyByName("sideways")
	assert.ErrorContains(t, err, "unknown placement policy")
}

func TestPolicyPromoteIndex(t *testing.T) {
	assert.Equal(t, 4, DefaultPolicy{}.PromoteIndex(4, 1, true))
	assert.Equal(t, 2, DefaultPolicy{}.PromoteIndex(4, 1, false))
	assert.Equal(t, 2, AdjacentPolicy{}.PromoteIndex(4, 1, true))
	assert.Equal(t, 4, AdjacentPolicy{}.PromoteIndex(4, -1, false))
}
