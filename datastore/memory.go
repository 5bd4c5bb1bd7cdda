// Package datastore provides the eval.DataProvider implementations backing a running flag
// evaluator: an in-memory store populated by a data source, an optional file-based data source
// with hot reload, and a caching wrapper for externally-backed stores.
package datastore

import (
	"sync"

	"github.com/fluxflag/go-sdk/eval"
)

// Memory is a thread-safe, in-memory implementation of eval.DataProvider over this module's two
// fixed data kinds: flags and segments.
type Memory struct {
	lock     sync.RWMutex
	flags    map[string]*eval.FeatureFlag
	segments map[string]*eval.Segment
	inited   bool
}

// NewMemory creates an empty Memory store. Init must be called before flags can be evaluated
// against it, though Upsert may also be used to populate it incrementally.
func NewMemory() *Memory {
	return &Memory{
		flags:    make(map[string]*eval.FeatureFlag),
		segments: make(map[string]*eval.Segment),
	}
}

// GetFeatureFlag implements eval.DataProvider.
func (m *Memory) GetFeatureFlag(key string) (*eval.FeatureFlag, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	f, ok := m.flags[key]
	if !ok || f.Deleted {
		return nil, false
	}
	return f, true
}

// GetSegment implements eval.DataProvider.
func (m *Memory) GetSegment(key string) (*eval.Segment, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	s, ok := m.segments[key]
	if !ok || s.Deleted {
		return nil, false
	}
	return s, true
}

// Init replaces the store's entire contents.
func (m *Memory) Init(flags map[string]*eval.FeatureFlag, segments map[string]*eval.Segment) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.flags = flags
	m.segments = segments
	m.inited = true
}

// UpsertFlag adds or replaces a flag, unless the stored version is already newer or equal.
func (m *Memory) UpsertFlag(flag *eval.FeatureFlag) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if existing, ok := m.flags[flag.Key]; ok && existing.Version >= flag.Version {
		return
	}
	m.flags[flag.Key] = flag
}

// UpsertSegment adds or replaces a segment, unless the stored version is already newer or equal.
func (m *Memory) UpsertSegment(segment *eval.Segment) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if existing, ok := m.segments[segment.Key]; ok && existing.Version >= segment.Version {
		return
	}
	m.segments[segment.Key] = segment
}

// DeleteFlag marks a flag deleted, unless the stored version is already newer or equal to version.
func (m *Memory) DeleteFlag(key string, version int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if existing, ok := m.flags[key]; ok && existing.Version >= version {
		return
	}
	m.flags[key] = &eval.FeatureFlag{Key: key, Version: version, Deleted: true}
}

// DeleteSegment marks a segment deleted, unless the stored version is already newer or equal.
func (m *Memory) DeleteSegment(key string, version int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if existing, ok := m.segments[key]; ok && existing.Version >= version {
		return
	}
	m.segments[key] = &eval.Segment{Key: key, Version: version, Deleted: true}
}

// Initialized reports whether Init has been called at least once.
func (m *Memory) Initialized() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.inited
}

// AllFlags returns every non-deleted flag, for diagnostics or bulk export.
func (m *Memory) AllFlags() map[string]*eval.FeatureFlag {
	m.lock.RLock()
	defer m.lock.RUnlock()
	out := make(map[string]*eval.FeatureFlag, len(m.flags))
	for k, f := range m.flags {
		if !f.Deleted {
			out[k] = f
		}
	}
	return out
}
