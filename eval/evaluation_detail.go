package eval

// EvalReasonKind describes why a flag evaluation produced the variation it did.
type EvalReasonKind string

// Evaluation reason kinds. PREREQUISITE_FAILED carries a single responsible prerequisite key, and
// a big-segments-status value is attached whenever a big-segment-backed match was consulted.
const (
	EvalReasonOff               EvalReasonKind = "OFF"
	EvalReasonTargetMatch       EvalReasonKind = "TARGET_MATCH"
	EvalReasonRuleMatch         EvalReasonKind = "RULE_MATCH"
	EvalReasonPrerequisiteFailed EvalReasonKind = "PREREQUISITE_FAILED"
	EvalReasonFallthrough       EvalReasonKind = "FALLTHROUGH"
	EvalReasonError             EvalReasonKind = "ERROR"
)

// EvalErrorKind further classifies an EvalReasonError reason.
type EvalErrorKind string

// Evaluation error kinds.
const (
	EvalErrorClientNotReady EvalErrorKind = "CLIENT_NOT_READY"
	EvalErrorFlagNotFound   EvalErrorKind = "FLAG_NOT_FOUND"
	EvalErrorMalformedFlag  EvalErrorKind = "MALFORMED_FLAG"
	EvalErrorUserNotSpecified EvalErrorKind = "USER_NOT_SPECIFIED"
	EvalErrorWrongType      EvalErrorKind = "WRONG_TYPE"
	EvalErrorException      EvalErrorKind = "EXCEPTION"
	EvalErrorCycleDetected  EvalErrorKind = "CYCLE_DETECTED"
)

// BigSegmentsStatus reports the health of the big-segment subsystem as of the evaluation that
// consulted it, carried in EvaluationReason when a big-segment-backed segment match was involved.
type BigSegmentsStatus string

// Big-segment status values.
const (
	BigSegmentsNotConfigured BigSegmentsStatus = "NOT_CONFIGURED"
	BigSegmentsHealthy       BigSegmentsStatus = "HEALTHY"
	BigSegmentsStale         BigSegmentsStatus = "STALE"
)

// EvaluationReason explains how an EvaluationDetail's value was chosen.
type EvaluationReason struct {
	Kind EvalReasonKind `json:"kind"`

	// RuleIndex and RuleID are set when Kind is RULE_MATCH.
	RuleIndex int    `json:"ruleIndex,omitempty"`
	RuleID    string `json:"ruleId,omitempty"`

	// PrerequisiteKey is set when Kind is PREREQUISITE_FAILED: the single prerequisite flag key
	// that caused the failure (the first one found), not a list.
	PrerequisiteKey string `json:"prerequisiteKey,omitempty"`

	// InExperiment is set for RULE_MATCH and FALLTHROUGH when the matched rule's TrackEvents (or the
	// flag's TrackEventsFallthrough) is on, per FeatureFlag.IsExperimentationEnabled.
	InExperiment bool `json:"inExperiment,omitempty"`

	// ErrorKind is set when Kind is ERROR.
	ErrorKind EvalErrorKind `json:"errorKind,omitempty"`

	// BigSegmentsStatus is set whenever the evaluation path consulted a big-segment-backed segment,
	// reporting the freshness of that lookup regardless of whether it changed the outcome.
	BigSegmentsStatus BigSegmentsStatus `json:"bigSegmentsStatus,omitempty"`
}

// NewOffReason returns an OFF reason.
func NewOffReason() EvaluationReason { return EvaluationReason{Kind: EvalReasonOff} }

// NewTargetMatchReason returns a TARGET_MATCH reason.
func NewTargetMatchReason() EvaluationReason { return EvaluationReason{Kind: EvalReasonTargetMatch} }

// NewRuleMatchReason returns a RULE_MATCH reason for the rule at the given index.
func NewRuleMatchReason(index int, ruleID string) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonRuleMatch, RuleIndex: index, RuleID: ruleID}
}

// NewPrerequisiteFailedReason returns a PREREQUISITE_FAILED reason naming the single prerequisite
// flag key responsible.
func NewPrerequisiteFailedReason(key string) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonPrerequisiteFailed, PrerequisiteKey: key}
}

// NewFallthroughReason returns a FALLTHROUGH reason.
func NewFallthroughReason() EvaluationReason { return EvaluationReason{Kind: EvalReasonFallthrough} }

// NewErrorReason returns an ERROR reason of the given kind.
func NewErrorReason(kind EvalErrorKind) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonError, ErrorKind: kind}
}

// EvaluationDetail is the result of evaluating a flag: the chosen value, the index of the variation
// that produced it (absent for off-variation-less flags and error results), and the reason.
type EvaluationDetail struct {
	Value          interface{}
	VariationIndex *int
	Reason         EvaluationReason
}

// IsDefaultValue reports whether this detail carries no variation index, meaning the caller's
// default value was returned (e.g. flag off with no off-variation, or an error).
func (d EvaluationDetail) IsDefaultValue() bool {
	return d.VariationIndex == nil
}
