package datastore

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/fluxflag/go-sdk/eval"
)

// Core is the minimal interface an externally-backed data store (e.g. a database-integration
// package) must implement for CachingWrapper to add TTL caching on top of it.
type Core interface {
	GetFlag(key string) (*eval.FeatureFlag, error)
	GetSegment(key string) (*eval.Segment, error)
}

// CachingWrapper adds an in-process TTL cache and single-flight request de-duplication in front
// of a Core, so that a slow or remote data store isn't hit once per evaluation. It only exposes the
// read-only eval.DataProvider surface — Init/Upsert/Delete belong to whatever populates Core.
type CachingWrapper struct {
	core     Core
	cache    *cache.Cache
	requests singleflight.Group
}

// NewCachingWrapper wraps core with a cache using the given TTL. A ttl of zero disables caching
// entirely, so every lookup goes straight to core (useful for stores that are already fast and
// locally consistent, like Memory).
func NewCachingWrapper(core Core, ttl time.Duration) *CachingWrapper {
	w := &CachingWrapper{core: core}
	if ttl > 0 {
		w.cache = cache.New(ttl, ttl*2)
	}
	return w
}

// GetFeatureFlag implements eval.DataProvider.
func (w *CachingWrapper) GetFeatureFlag(key string) (*eval.FeatureFlag, bool) {
	v, err := w.get("flag:"+key, func() (interface{}, error) { return w.core.GetFlag(key) })
	if err != nil || v == nil {
		return nil, false
	}
	flag := v.(*eval.FeatureFlag)
	if flag == nil || flag.Deleted {
		return nil, false
	}
	return flag, true
}

// GetSegment implements eval.DataProvider.
func (w *CachingWrapper) GetSegment(key string) (*eval.Segment, bool) {
	v, err := w.get("segment:"+key, func() (interface{}, error) { return w.core.GetSegment(key) })
	if err != nil || v == nil {
		return nil, false
	}
	segment := v.(*eval.Segment)
	if segment == nil || segment.Deleted {
		return nil, false
	}
	return segment, true
}

func (w *CachingWrapper) get(cacheKey string, load func() (interface{}, error)) (interface{}, error) {
	if w.cache != nil {
		if cached, found := w.cache.Get(cacheKey); found {
			return cached, nil
		}
	}

	v, err, _ := w.requests.Do(cacheKey, func() (interface{}, error) {
		result, loadErr := load()
		if loadErr != nil {
			return nil, fmt.Errorf("data store lookup failed: %w", loadErr)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if w.cache != nil {
		w.cache.SetDefault(cacheKey, v)
	}
	return v, nil
}
