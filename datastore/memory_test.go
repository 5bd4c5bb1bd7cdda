package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxflag/go-sdk/eval"
)

func TestMemoryGetFeatureFlagMissingReturnsFalse(t *testing.T) {
	m := NewMemory()
	_, ok := m.GetFeatureFlag("flag1")
	assert.False(t, ok)
}

func TestMemoryInitPopulatesStore(t *testing.T) {
	m := NewMemory()
	m.Init(map[string]*eval.FeatureFlag{"flag1": {Key: "flag1", Version: 1}}, nil)

	flag, ok := m.GetFeatureFlag("flag1")
	require.True(t, ok)
	assert.Equal(t, 1, flag.Version)
	assert.True(t, m.Initialized())
}

func TestMemoryUpsertFlagIgnoresOlderVersion(t *testing.T) {
	m := NewMemory()
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 5})
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 3})

	flag, ok := m.GetFeatureFlag("flag1")
	require.True(t, ok)
	assert.Equal(t, 5, flag.Version)
}

func TestMemoryUpsertFlagAppliesNewerVersion(t *testing.T) {
	m := NewMemory()
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 3})
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 5})

	flag, ok := m.GetFeatureFlag("flag1")
	require.True(t, ok)
	assert.Equal(t, 5, flag.Version)
}

func TestMemoryDeleteFlagHidesIt(t *testing.T) {
	m := NewMemory()
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 1})
	m.DeleteFlag("flag1", 2)

	_, ok := m.GetFeatureFlag("flag1")
	assert.False(t, ok)
}

func TestMemoryDeleteFlagIgnoredIfOlder(t *testing.T) {
	m := NewMemory()
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 5})
	m.DeleteFlag("flag1", 2)

	flag, ok := m.GetFeatureFlag("flag1")
	require.True(t, ok)
	assert.Equal(t, 5, flag.Version)
}

func TestMemorySegmentRoundTrip(t *testing.T) {
	m := NewMemory()
	m.UpsertSegment(&eval.Segment{Key: "seg1", Version: 1})

	seg, ok := m.GetSegment("seg1")
	require.True(t, ok)
	assert.Equal(t, "seg1", seg.Key)
}

func TestMemoryAllFlagsOmitsDeleted(t *testing.T) {
	m := NewMemory()
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag1", Version: 1})
	m.UpsertFlag(&eval.FeatureFlag{Key: "flag2", Version: 1})
	m.DeleteFlag("flag2", 2)

	all := m.AllFlags()
	assert.Len(t, all, 1)
	assert.Contains(t, all, "flag1")
}
