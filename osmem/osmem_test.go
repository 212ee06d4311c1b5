package osmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveCommitRelease(t *testing.T) {
	var sys System
	region, err := sys.Reserve(4 * PageSize)
	require.NoError(t, err)
	defer func() { require.NoError(t, sys.Release(region)) }()

	require.NoError(t, sys.Commit(region, 0, PageSize))
	region[0] = 0xAB
	region[PageSize-1] = 0xCD
	assert.Equal(t, byte(0xAB), region[0])
	assert.Equal(t, byte(0xCD), region[PageSize-1])
}

func TestCacheLineSizeNonZero(t *testing.T) {
	assert.GreaterOrEqual(t, CacheLineSize(), 32)
}

func TestLogicalCPUCountPositive(t *testing.T) {
	assert.GreaterOrEqual(t, LogicalCPUCount(), 1)
}
