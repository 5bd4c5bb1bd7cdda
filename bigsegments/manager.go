package bigsegments

import (
	"sync"
	"time"

	"github.com/launchdarkly/ccache"
	"golang.org/x/sync/singleflight"

	"github.com/fluxflag/go-sdk/eval"
	"github.com/fluxflag/go-sdk/internal/flaglog"
)

// Status reports whether the manager's last metadata poll succeeded and whether the store's data
// is considered stale.
type Status struct {
	Available bool
	Stale     bool
}

// StatusListener receives a call whenever the manager's big-segment store status changes.
type StatusListener func(Status)

// Config controls a Manager's polling and caching behavior.
type Config struct {
	Store              Store
	UserCacheSize       int
	UserCacheTime       time.Duration
	StatusPollInterval  time.Duration
	StaleAfter          time.Duration
	StartPollingOnInit  bool
	Loggers             flaglog.Loggers
	StatusChanged       StatusListener
}

// Manager adds status polling and membership caching on top of a Store, and implements
// eval.BigSegmentsProvider so it can be plugged directly into eval.Evaluate.
type Manager struct {
	store        Store
	staleTime    time.Duration
	pollInterval time.Duration
	userCache    *ccache.Cache
	cacheTTL     time.Duration
	requests     singleflight.Group
	statusFn     StatusListener
	loggers      flaglog.Loggers

	lock       sync.RWMutex
	haveStatus bool
	lastStatus Status
	pollCloser chan struct{}
}

// NewManager creates a Manager and, unless config.StartPollingOnInit is false, immediately starts
// its background status-polling goroutine.
func NewManager(config Config) *Manager {
	cacheSize := config.UserCacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultUserCacheSize
	}
	cacheTTL := config.UserCacheTime
	if cacheTTL <= 0 {
		cacheTTL = DefaultUserCacheTime
	}
	pollInterval := config.StatusPollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultStatusPollInterval
	}
	staleAfter := config.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	m := &Manager{
		store:        config.Store,
		staleTime:    staleAfter,
		pollInterval: pollInterval,
		userCache:    ccache.New(ccache.Configure().MaxSize(int64(cacheSize))),
		cacheTTL:     cacheTTL,
		statusFn:     config.StatusChanged,
		loggers:      config.Loggers,
	}

	if config.StartPollingOnInit {
		m.pollCloser = make(chan struct{})
		go m.runPollTask(m.pollInterval, m.pollCloser)
	}

	return m
}

// Close shuts down the manager's polling task, its cache, and the underlying store.
func (m *Manager) Close() {
	m.lock.Lock()
	if m.pollCloser != nil {
		close(m.pollCloser)
		m.pollCloser = nil
	}
	if m.userCache != nil {
		m.userCache.Stop()
		m.userCache = nil
	}
	m.lock.Unlock()

	_ = m.store.Close()
}

// GetUserMembership implements eval.BigSegmentsProvider: it returns a cached membership snapshot
// for userKey if one is fresh, otherwise queries the store (de-duplicating concurrent callers for
// the same key via singleflight) and caches the result.
func (m *Manager) GetUserMembership(userKey string) (eval.BigSegmentMembership, eval.BigSegmentsStatus) {
	entry := m.safeCacheGet(userKey)
	var result Membership
	if entry == nil || entry.Expired() {
		value, err, _ := m.requests.Do(userKey, func() (interface{}, error) {
			hash := HashForUserKey(userKey)
			m.loggers.Debugf("querying big segment state for user hash %q", hash)
			return m.store.GetMembership(hash)
		})
		if err != nil {
			m.loggers.Errorf("big segment store returned error: %s", err)
			return nil, eval.BigSegmentsStale
		}
		membership, _ := value.(Membership)
		m.safeCacheSet(userKey, membership, m.cacheTTL)
		result = membership
	} else if entry.Value() != nil {
		result, _ = entry.Value().(Membership)
	}

	status := eval.BigSegmentsHealthy
	if m.GetStatus().Stale {
		status = eval.BigSegmentsStale
	}
	if result == nil {
		return nil, status
	}
	return result, status
}

// GetStatus returns the manager's current view of store availability and staleness, querying the
// store synchronously if no poll has completed yet.
func (m *Manager) GetStatus() Status {
	m.lock.RLock()
	status, have := m.lastStatus, m.haveStatus
	m.lock.RUnlock()
	if have {
		return status
	}
	return m.pollAndUpdateStatus()
}

func (m *Manager) pollAndUpdateStatus() Status {
	m.loggers.Debug("querying big segment store metadata")
	metadata, err := m.store.GetMetadata()

	m.lock.Lock()
	var newStatus Status
	if err == nil {
		newStatus.Available = true
		newStatus.Stale = m.isStale(metadata.LastUpToDate)
	} else {
		m.loggers.Errorf("big segment store status query returned error: %s", err)
	}
	oldStatus, hadStatus := m.lastStatus, m.haveStatus
	m.lastStatus = newStatus
	m.haveStatus = true
	m.lock.Unlock()

	if (!hadStatus || newStatus != oldStatus) && m.statusFn != nil {
		m.statusFn(newStatus)
	}
	return newStatus
}

func (m *Manager) isStale(lastUpToDate uint64) bool {
	age := time.Duration(uint64(nowMillis())-lastUpToDate) * time.Millisecond
	return age >= m.staleTime
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixNano() / int64(time.Millisecond))
}

func (m *Manager) runPollTask(interval time.Duration, closer <-chan struct{}) {
	if interval > m.staleTime {
		interval = m.staleTime
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-closer:
			return
		case <-ticker.C:
			m.pollAndUpdateStatus()
		}
	}
}

func (m *Manager) safeCacheGet(key string) *ccache.Item {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.userCache == nil {
		return nil
	}
	return m.userCache.Get(key)
}

func (m *Manager) safeCacheSet(key string, value interface{}, ttl time.Duration) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.userCache != nil {
		m.userCache.Set(key, value, ttl)
	}
}
