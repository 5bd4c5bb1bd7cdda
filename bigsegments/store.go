package bigsegments

import "time"

// StoreMetadata describes the overall freshness of a Store, independent of any single user's
// membership data.
type StoreMetadata struct {
	LastUpToDate uint64 // Unix milliseconds; zero if the store has never been updated.
}

// Membership is a store-specific snapshot of one user's inclusion/exclusion state across big
// segments, as returned by Store.GetMembership. Implementations need not be safe to keep using
// after the store that produced them is closed.
type Membership interface {
	// CheckMembership reports true if segmentRef explicitly includes the user, false if it
	// explicitly excludes them, or nil if this membership snapshot has no opinion (the evaluator
	// then falls back to the segment's ordinary included/excluded/rules matching).
	CheckMembership(segmentRef string) *bool
}

// Store is the read-only interface to wherever big-segment membership data actually lives
// (typically a Redis- or DynamoDB-backed synchronization target populated by a separate relay
// process).
type Store interface {
	GetMetadata() (StoreMetadata, error)
	GetMembership(userHash string) (Membership, error)
	Close() error
}

// MembershipFromSegmentRefs builds a Membership from explicit included/excluded segment reference
// lists, as a Store implementation would when assembling a query result. Inclusion takes priority
// over exclusion.
func MembershipFromSegmentRefs(included, excluded []string) Membership {
	if len(included) == 0 && len(excluded) == 0 {
		return mapMembership(nil)
	}
	m := make(mapMembership, len(included)+len(excluded))
	for _, ref := range excluded {
		m[ref] = false
	}
	for _, ref := range included {
		m[ref] = true
	}
	return m
}

type mapMembership map[string]bool

func (m mapMembership) CheckMembership(segmentRef string) *bool {
	v, ok := m[segmentRef]
	if !ok {
		return nil
	}
	return &v
}

const (
	// DefaultUserCacheSize is the default number of users' membership state cached in memory.
	DefaultUserCacheSize = 1000
	// DefaultUserCacheTime is the default TTL for a cached membership entry.
	DefaultUserCacheTime = 5 * time.Second
	// DefaultStatusPollInterval is the default interval between store metadata polls.
	DefaultStatusPollInterval = 5 * time.Second
	// DefaultStaleAfter is the default age past which a store's last update is considered stale.
	DefaultStaleAfter = 2 * time.Minute
)
