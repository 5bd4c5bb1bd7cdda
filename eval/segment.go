package eval

import "strconv"

// BigSegmentMembership answers whether a user belongs to a given big segment, as resolved by the
// bigsegments package. A nil *bool means "no explicit membership record"; callers fall back to the
// segment's ordinary rules in that case.
type BigSegmentMembership interface {
	CheckMembership(segmentRef string) *bool
}

// BigSegmentsProvider resolves the membership and health status of big segments for a user. The
// evaluator consults it only for segments with Unbounded set; it is otherwise unused, so an
// evaluation with no unbounded segments never touches this collaborator.
type BigSegmentsProvider interface {
	GetUserMembership(userKey string) (BigSegmentMembership, BigSegmentsStatus)
}

// segmentContainsUser decides whether user matches segment, dispatching to the big-segment path
// when the segment is unbounded and otherwise to the simple included/excluded/rules path.
func (e *evaluation) segmentContainsUser(segment *Segment, user User) (bool, BigSegmentsStatus) {
	if segment.Unbounded {
		return e.bigSegmentContainsUser(segment, user)
	}
	return simpleSegmentContainsUser(segment, user), BigSegmentsNotConfigured
}

func simpleSegmentContainsUser(segment *Segment, user User) bool {
	for _, key := range segment.Included {
		if key == user.Key {
			return true
		}
	}
	for _, key := range segment.Excluded {
		if key == user.Key {
			return false
		}
	}
	for _, rule := range segment.Rules {
		if segmentRuleMatchesUser(rule, user, segment.Key, segment.Salt) {
			return true
		}
	}
	return false
}

func segmentRuleMatchesUser(rule SegmentRule, user User, segmentKey, salt string) bool {
	for _, clause := range rule.Clauses {
		if !clauseMatchesUserNoSegments(clause, user) {
			return false
		}
	}
	if rule.Weight == nil {
		return true
	}
	bucketBy := rule.BucketBy
	if bucketBy == "" {
		bucketBy = "key"
	}
	bucket := bucketUser(user, segmentKey, bucketBy, salt)
	return bucket < float32(*rule.Weight)/100000.0
}

// bigSegmentContainsUser implements the big-segment path: if the segment has no generation stamp
// it is not yet configured for big-segment queries at all, so the status is NOT_CONFIGURED and the
// simple path is not consulted either. Otherwise the membership/status pair is queried at most once
// per evaluation and cached on e.
func (e *evaluation) bigSegmentContainsUser(segment *Segment, user User) (bool, BigSegmentsStatus) {
	if segment.Generation == nil {
		return false, BigSegmentsNotConfigured
	}
	if !e.bigSegmentQueried {
		e.bigSegmentQueried = true
		if e.bigSegments == nil {
			e.bigSegmentStatus = BigSegmentsNotConfigured
		} else {
			e.bigSegmentMembership, e.bigSegmentStatus = e.bigSegments.GetUserMembership(user.Key)
		}
	}
	if e.bigSegmentMembership != nil {
		if included := e.bigSegmentMembership.CheckMembership(segmentRef(segment)); included != nil {
			return *included, e.bigSegmentStatus
		}
	}
	return simpleSegmentContainsUser(segment, user), e.bigSegmentStatus
}

func segmentRef(segment *Segment) string {
	gen := 0
	if segment.Generation != nil {
		gen = *segment.Generation
	}
	return segment.Key + ".g" + strconv.Itoa(gen)
}
