package eval

// DataProvider supplies the flag/segment views an evaluation consults. Implementations are
// expected to be cheap, synchronous lookups against a feature store snapshot; the evaluator never
// blocks on I/O itself.
type DataProvider interface {
	GetFeatureFlag(key string) (*FeatureFlag, bool)
	GetSegment(key string) (*Segment, bool)
}

// PrerequisiteEvalRecord is emitted once per prerequisite flag consulted during an evaluation,
// regardless of whether that prerequisite was satisfied, so the caller can generate the
// corresponding analytics events.
type PrerequisiteEvalRecord struct {
	TargetFlagKey    string
	User             User
	PrerequisiteFlag FeatureFlag
	Result           EvaluationDetail
}

// Evaluate computes the evaluation detail for flag against user, consulting data for prerequisite
// flags and segments as needed, and returns the prerequisite evaluation records produced along the
// way.
//
// bigSegments may be nil; it is only consulted for segments with Unbounded set.
func Evaluate(flag *FeatureFlag, user User, data DataProvider, bigSegments BigSegmentsProvider) (EvaluationDetail, []PrerequisiteEvalRecord) {
	if user.Key == "" {
		return EvaluationDetail{Value: nil, Reason: NewErrorReason(EvalErrorUserNotSpecified)}, nil
	}
	e := &evaluation{data: data, bigSegments: bigSegments, visited: map[string]bool{flag.Key: true}}
	detail := e.evalFlag(flag, user)
	return detail, e.prereqEvents
}

// evaluation carries the per-call state of a single Evaluate invocation: the visited-flag set for
// cycle detection and the accumulated prerequisite records.
type evaluation struct {
	data                  DataProvider
	bigSegments           BigSegmentsProvider
	visited               map[string]bool
	prereqEvents          []PrerequisiteEvalRecord
	lastBigSegmentsStatus BigSegmentsStatus

	// bigSegmentQueried/bigSegmentMembership/bigSegmentStatus cache the single big-segment
	// membership query performed per evaluation — later clauses reuse the cached result instead of
	// querying again.
	bigSegmentQueried     bool
	bigSegmentMembership  BigSegmentMembership
	bigSegmentStatus      BigSegmentsStatus

	// cycleDetected is set once the visited-set guard trips, so every enclosing prerequisite check
	// reports the cycle instead of an ordinary unmet prerequisite.
	cycleDetected bool
}

func (e *evaluation) evalFlag(flag *FeatureFlag, user User) EvaluationDetail {
	if !flag.On {
		return e.offVariationDetail(flag, NewOffReason())
	}

	prereqFailedKey, ok := e.checkPrerequisites(flag, user)
	if !ok {
		if prereqFailedKey == cycleDetectedMarker {
			return EvaluationDetail{Reason: NewErrorReason(EvalErrorMalformedFlag)}
		}
		return e.offVariationDetail(flag, NewPrerequisiteFailedReason(prereqFailedKey))
	}

	for _, target := range flag.Targets {
		for _, v := range target.Values {
			if v == user.Key {
				idx := target.Variation
				return e.variationDetail(flag, VariationOrRollout{Variation: &idx}, NewTargetMatchReason(), user)
			}
		}
	}

	for i, rule := range flag.Rules {
		if e.ruleMatchesUser(rule, user) {
			reason := NewRuleMatchReason(i, rule.ID)
			reason.InExperiment = flag.IsExperimentationEnabled(reason)
			return e.variationDetail(flag, rule.VariationOrRollout, reason, user)
		}
	}

	reason := NewFallthroughReason()
	reason.InExperiment = flag.IsExperimentationEnabled(reason)
	return e.variationDetail(flag, flag.Fallthrough, reason, user)
}

// offVariationDetail returns the flag's off-variation result for a given reason (used for both the
// flag-is-off case and the prerequisite-failed case, which also falls back to the off variation).
func (e *evaluation) offVariationDetail(flag *FeatureFlag, reason EvaluationReason) EvaluationDetail {
	if flag.OffVariation == nil {
		return EvaluationDetail{Reason: reason}
	}
	return e.variationDetail(flag, VariationOrRollout{Variation: flag.OffVariation}, reason, User{})
}

// cycleDetectedMarker is an internal sentinel distinguishing a cycle from an ordinary unsatisfied
// prerequisite in checkPrerequisites' return value; it is never a real flag key since flag keys
// can't contain NUL bytes in any supported data source format.
const cycleDetectedMarker = "\x00cycle\x00"

// checkPrerequisites evaluates every prerequisite of flag, recording a PrerequisiteEvalRecord for
// each regardless of outcome, and returns (key, false) for the first one that is off or doesn't
// return its required variation. ok is false with key==cycleDetectedMarker if a prerequisite cycle
// was detected via the visited-set guard threaded through evalFlag.
func (e *evaluation) checkPrerequisites(flag *FeatureFlag, user User) (key string, ok bool) {
	for _, prereq := range flag.Prerequisites {
		if e.visited[prereq.Key] {
			e.cycleDetected = true
			return cycleDetectedMarker, false
		}
		prereqFlag, found := e.data.GetFeatureFlag(prereq.Key)
		if !found || prereqFlag == nil {
			return prereq.Key, false
		}

		e.visited[prereq.Key] = true
		prereqDetail := e.evalFlag(prereqFlag, user)
		delete(e.visited, prereq.Key)

		e.prereqEvents = append(e.prereqEvents, PrerequisiteEvalRecord{
			TargetFlagKey:    flag.Key,
			User:             user,
			PrerequisiteFlag: *prereqFlag,
			Result:           prereqDetail,
		})

		if e.cycleDetected {
			return cycleDetectedMarker, false
		}
		if !prereqFlag.On || prereqDetail.VariationIndex == nil || *prereqDetail.VariationIndex != prereq.Variation {
			return prereq.Key, false
		}
	}
	return "", true
}

// variationDetail resolves vr (a fixed variation or a rollout) to a concrete variation index and
// builds the final EvaluationDetail, merging in any big-segment status the reason already carries
// from rule matching.
func (e *evaluation) variationDetail(flag *FeatureFlag, vr VariationOrRollout, reason EvaluationReason, user User) EvaluationDetail {
	index, ok := e.variationIndexForUser(flag, vr, user)
	if !ok {
		return EvaluationDetail{Reason: NewErrorReason(EvalErrorMalformedFlag)}
	}
	if index < 0 || index >= len(flag.Variations) {
		return EvaluationDetail{Reason: NewErrorReason(EvalErrorMalformedFlag)}
	}
	if e.lastBigSegmentsStatus != "" {
		reason.BigSegmentsStatus = e.lastBigSegmentsStatus
	}
	idx := index
	return EvaluationDetail{Value: flag.Variations[index], VariationIndex: &idx, Reason: reason}
}

// variationIndexForUser resolves a fixed-variation-or-rollout to a concrete index: bucketBy
// defaults to "key", and the last weighted variation is used as the fallback if cumulative weights
// (due to rounding) don't reach the computed bucket.
func (e *evaluation) variationIndexForUser(flag *FeatureFlag, vr VariationOrRollout, user User) (int, bool) {
	if vr.Variation != nil {
		return *vr.Variation, true
	}
	if vr.Rollout == nil || len(vr.Rollout.Variations) == 0 {
		return 0, false
	}
	bucketBy := vr.Rollout.BucketBy
	if bucketBy == "" {
		bucketBy = "key"
	}
	bucket := bucketUser(user, flag.Key, bucketBy, flag.Salt)
	var sum float32
	for _, wv := range vr.Rollout.Variations {
		sum += float32(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation, true
		}
	}
	last := vr.Rollout.Variations[len(vr.Rollout.Variations)-1]
	return last.Variation, true
}

// ruleMatchesUser reports whether every clause in rule matches user.
func (e *evaluation) ruleMatchesUser(rule Rule, user User) bool {
	for _, clause := range rule.Clauses {
		if !e.clauseMatchesUser(clause, user) {
			return false
		}
	}
	return true
}

// clauseMatchesUser dispatches segmentMatch clauses to segment lookup and everything else to the
// attribute-comparison path, applying Negate last in both cases.
func (e *evaluation) clauseMatchesUser(clause Clause, user User) bool {
	if clause.Op == OperatorSegmentMatch {
		matched := false
		for _, v := range clause.Values {
			segKey, ok := v.(string)
			if !ok {
				continue
			}
			segment, found := e.data.GetSegment(segKey)
			if !found || segment == nil {
				continue
			}
			in, status := e.segmentContainsUser(segment, user)
			if status != BigSegmentsNotConfigured {
				e.lastBigSegmentsStatus = status
			}
			if in {
				matched = true
				break
			}
		}
		return maybeNegate(clause.Negate, matched)
	}
	return clauseMatchesUserNoSegments(clause, user)
}

// clauseMatchesUserNoSegments implements the non-segment clause rule: a missing attribute never
// matches (checked before Negate is applied); a sequence-valued attribute matches if any of its
// elements satisfies op against any clause value; a scalar attribute matches if it alone satisfies
// op against any clause value.
func clauseMatchesUserNoSegments(clause Clause, user User) bool {
	value := user.GetAttribute(clause.Attribute)
	if value == nil {
		return false
	}
	fn, ok := allOps[clause.Op]
	if !ok {
		return false
	}
	if elems, ok := value.([]interface{}); ok {
		for _, elem := range elems {
			if matchAny(fn, elem, clause.Values) {
				return maybeNegate(clause.Negate, true)
			}
		}
		return maybeNegate(clause.Negate, false)
	}
	return maybeNegate(clause.Negate, matchAny(fn, value, clause.Values))
}

func maybeNegate(negate, result bool) bool {
	if negate {
		return !result
	}
	return result
}
