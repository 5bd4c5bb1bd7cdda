package events

import (
	"time"

	"github.com/fluxflag/go-sdk/eval"
)

// now returns the current time in Unix milliseconds, the timestamp unit used throughout the wire
// format for CreationDate and the diagnostics events.
func now() uint64 {
	return toUnixMillis(time.Now())
}

func toUnixMillis(t time.Time) uint64 {
	ms := t.UnixNano() / int64(time.Millisecond)
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// BaseEvent holds the fields common to every event kind: when it happened and who it happened to.
type BaseEvent struct {
	CreationDate uint64
	User         eval.User
}

// GetBase returns the event's BaseEvent, satisfying the Event interface for every concrete event
// type via embedding.
func (b BaseEvent) GetBase() BaseEvent {
	return b
}

// Event is the common interface satisfied by every event kind the processor accepts.
type Event interface {
	GetBase() BaseEvent
}

// EvalEvent records a single flag evaluation. It is the richest event kind: besides the variation
// produced, it carries enough of the evaluation reason and flag metadata to let the summarizer and
// the output formatter decide whether it should be counted, sent in full, or sent as a debug event.
type EvalEvent struct {
	BaseEvent
	Key                  string
	Variation            *int
	Value                interface{}
	Default              interface{}
	Version              *int
	PrereqOf             *string
	Reason               eval.EvaluationReason
	TrackEvents          bool
	DebugEventsUntilDate *uint64
	Debug                bool
}

// IdentifyEvent records that a user was seen, independent of any flag evaluation.
type IdentifyEvent struct {
	BaseEvent
}

// CustomEvent records a custom conversion metric.
type CustomEvent struct {
	BaseEvent
	Key        string
	Data       interface{}
	HasMetric  bool
	MetricValue float64
}

// AliasEvent records that two user keys (typically an anonymous key and a later-identified key)
// refer to the same person.
type AliasEvent struct {
	BaseEvent
	CurrentKey  string
	CurrentKind string
	PreviousKey  string
	PreviousKind string
}

// IndexEvent is synthesized by the dispatcher, not created by callers: it tells the events service
// about a user the client has seen, the first time an event for that user is noticed within a
// user-keys flush interval.
type IndexEvent struct {
	BaseEvent
}

// NewIdentifyEvent constructs an IdentifyEvent timestamped now.
func NewIdentifyEvent(user eval.User) IdentifyEvent {
	return IdentifyEvent{BaseEvent: BaseEvent{CreationDate: now(), User: user}}
}

// NewCustomEvent constructs a CustomEvent timestamped now.
func NewCustomEvent(user eval.User, key string, data interface{}, hasMetric bool, metricValue float64) CustomEvent {
	return CustomEvent{
		BaseEvent:   BaseEvent{CreationDate: now(), User: user},
		Key:         key,
		Data:        data,
		HasMetric:   hasMetric,
		MetricValue: metricValue,
	}
}

// NewAliasEvent constructs an AliasEvent timestamped now.
func NewAliasEvent(currentKey, currentKind, previousKey, previousKind string) AliasEvent {
	return AliasEvent{
		BaseEvent:    BaseEvent{CreationDate: now()},
		CurrentKey:   currentKey,
		CurrentKind:  currentKind,
		PreviousKey:  previousKey,
		PreviousKind: previousKind,
	}
}

// NewEvalEvent constructs an EvalEvent from an evaluation result, timestamped now.
func NewEvalEvent(
	user eval.User,
	flagKey string,
	flagVersion *int,
	detail eval.EvaluationDetail,
	defaultValue interface{},
	prereqOf *string,
	trackEvents bool,
	debugEventsUntilDate *uint64,
) EvalEvent {
	return EvalEvent{
		BaseEvent:            BaseEvent{CreationDate: now(), User: user},
		Key:                  flagKey,
		Variation:            detail.VariationIndex,
		Value:                detail.Value,
		Default:              defaultValue,
		Version:              flagVersion,
		PrereqOf:             prereqOf,
		Reason:               detail.Reason,
		TrackEvents:          trackEvents,
		DebugEventsUntilDate: debugEventsUntilDate,
	}
}
