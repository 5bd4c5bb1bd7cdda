package datastore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxflag/go-sdk/eval"
)

type fakeCore struct {
	flags    map[string]*eval.FeatureFlag
	segments map[string]*eval.Segment
	flagErr  error
	calls    int
}

func (c *fakeCore) GetFlag(key string) (*eval.FeatureFlag, error) {
	c.calls++
	if c.flagErr != nil {
		return nil, c.flagErr
	}
	return c.flags[key], nil
}

func (c *fakeCore) GetSegment(key string) (*eval.Segment, error) {
	return c.segments[key], nil
}

func TestCachingWrapperCachesSuccessfulLookup(t *testing.T) {
	core := &fakeCore{flags: map[string]*eval.FeatureFlag{"flag1": {Key: "flag1", Version: 1}}}
	w := NewCachingWrapper(core, time.Minute)

	flag, ok := w.GetFeatureFlag("flag1")
	require.True(t, ok)
	assert.Equal(t, "flag1", flag.Key)

	w.GetFeatureFlag("flag1")
	assert.Equal(t, 1, core.calls) // second call served from cache
}

func TestCachingWrapperZeroTTLNeverCaches(t *testing.T) {
	core := &fakeCore{flags: map[string]*eval.FeatureFlag{"flag1": {Key: "flag1", Version: 1}}}
	w := NewCachingWrapper(core, 0)

	w.GetFeatureFlag("flag1")
	w.GetFeatureFlag("flag1")
	assert.Equal(t, 2, core.calls)
}

func TestCachingWrapperMissingFlagReturnsFalse(t *testing.T) {
	core := &fakeCore{flags: map[string]*eval.FeatureFlag{}}
	w := NewCachingWrapper(core, time.Minute)

	_, ok := w.GetFeatureFlag("missing")
	assert.False(t, ok)
}

func TestCachingWrapperCoreErrorReturnsFalse(t *testing.T) {
	core := &fakeCore{flagErr: errors.New("boom")}
	w := NewCachingWrapper(core, time.Minute)

	_, ok := w.GetFeatureFlag("flag1")
	assert.False(t, ok)
}

func TestCachingWrapperDeletedFlagReturnsFalse(t *testing.T) {
	core := &fakeCore{flags: map[string]*eval.FeatureFlag{"flag1": {Key: "flag1", Deleted: true}}}
	w := NewCachingWrapper(core, time.Minute)

	_, ok := w.GetFeatureFlag("flag1")
	assert.False(t, ok)
}
