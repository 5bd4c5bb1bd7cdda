package eval

// FeatureFlag is the data-model representation of a flag as stored by the feature store, carrying
// the fields needed for prerequisite, target, rule, and big-segment matching.
type FeatureFlag struct {
	Key                    string
	Version                int
	On                     bool
	Prerequisites          []Prerequisite
	Salt                   string
	Targets                []Target
	Rules                  []Rule
	Fallthrough            VariationOrRollout
	OffVariation           *int
	Variations             []interface{}
	TrackEvents            bool
	TrackEventsFallthrough bool
	DebugEventsUntilDate   *int64
	Deleted                bool
}

// IsExperimentationEnabled reports whether the given evaluation reason should force full event
// tracking because it landed in an experiment.
func (f *FeatureFlag) IsExperimentationEnabled(reason EvaluationReason) bool {
	switch reason.Kind {
	case EvalReasonFallthrough:
		return f.TrackEventsFallthrough
	case EvalReasonRuleMatch:
		if reason.RuleIndex >= 0 && reason.RuleIndex < len(f.Rules) {
			return f.Rules[reason.RuleIndex].TrackEvents
		}
	}
	return false
}

// Prerequisite is a reference to another flag and the variation it must return for this flag's
// prerequisites to be satisfied.
type Prerequisite struct {
	Key       string
	Variation int
}

// Target is an explicit list of user keys that should receive a given variation, independent of
// rules.
type Target struct {
	Variation int
	Values    []string
}

// Rule is an ordered list of clauses, all of which must match, plus the variation or rollout to
// apply when they do.
type Rule struct {
	ID                 string
	Clauses            []Clause
	VariationOrRollout VariationOrRollout
	TrackEvents        bool
}

// VariationOrRollout is either a fixed variation index or a weighted rollout among variations.
type VariationOrRollout struct {
	Variation *int
	Rollout   *Rollout
}

// Rollout distributes users across variations by bucketing on an attribute.
type Rollout struct {
	Variations []WeightedVariation
	BucketBy   string
	IsExperiment bool
}

// WeightedVariation gives a variation index a weight out of 100000, for rollout precision.
type WeightedVariation struct {
	Variation int
	Weight    int
	Untracked bool
}

// Clause is a single condition: does the named attribute's value satisfy Op against Values, with
// Negate applied last.
type Clause struct {
	Attribute string
	Op        Operator
	Values    []interface{}
	Negate    bool
}

// Segment is the data-model representation of a user segment. Included/Excluded/Rules support the
// simple match path; Unbounded/Generation support the big-segment path.
type Segment struct {
	Key         string
	Included    []string
	Excluded    []string
	Salt        string
	Rules       []SegmentRule
	Version     int
	Unbounded   bool
	Generation  *int
	Deleted     bool
}

// SegmentRule is a clause list plus an optional weight, matched the same way a flag Rule is except
// that segment rules never reference other segments.
type SegmentRule struct {
	Clauses  []Clause
	Weight   *int
	BucketBy string
}
