package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorIn(t *testing.T) {
	fn := allOps[OperatorIn]
	assert.True(t, fn("a", "a"))
	assert.False(t, fn("a", "b"))
	assert.True(t, fn(float64(5), float64(5)))
}

func TestOperatorStringOps(t *testing.T) {
	assert.True(t, allOps[OperatorStartsWith]("foobar", "foo"))
	assert.False(t, allOps[OperatorStartsWith]("foobar", "bar"))
	assert.True(t, allOps[OperatorEndsWith]("foobar", "bar"))
	assert.True(t, allOps[OperatorContains]("foobar", "oob"))
}

func TestOperatorMatches(t *testing.T) {
	assert.True(t, allOps[OperatorMatches]("foo123", `^foo\d+$`))
	assert.False(t, allOps[OperatorMatches]("foo", `^\d+$`))
	assert.False(t, allOps[OperatorMatches]("foo", `(`)) // invalid regex never matches
}

func TestOperatorNumericComparisons(t *testing.T) {
	assert.True(t, allOps[OperatorLessThan](float64(1), float64(2)))
	assert.False(t, allOps[OperatorLessThan](float64(2), float64(1)))
	assert.True(t, allOps[OperatorGreaterThanOrEqual](float64(2), float64(2)))
}

func TestOperatorDateComparisons(t *testing.T) {
	earlier := "2020-01-01T00:00:00Z"
	later := "2021-01-01T00:00:00Z"
	assert.True(t, allOps[OperatorBefore](earlier, later))
	assert.True(t, allOps[OperatorAfter](later, earlier))
	assert.False(t, allOps[OperatorBefore](later, earlier))
}

func TestOperatorDateAcceptsEpochMillis(t *testing.T) {
	assert.True(t, allOps[OperatorBefore](float64(1000), float64(2000)))
}

func TestOperatorSemVerComparisons(t *testing.T) {
	assert.True(t, allOps[OperatorSemVerEqual]("2.0.0", "2.0.0"))
	assert.True(t, allOps[OperatorSemVerLessThan]("1.0.0", "2.0.0"))
	assert.True(t, allOps[OperatorSemVerGreaterThan]("2.0.1", "2.0.0"))
}

func TestOperatorSemVerTolerantOfPartialVersions(t *testing.T) {
	assert.True(t, allOps[OperatorSemVerEqual]("2", "2.0.0"))
	assert.True(t, allOps[OperatorSemVerEqual]("2.1", "2.1.0"))
}

func TestClauseMatchesUserNoSegmentsAppliesNegate(t *testing.T) {
	clause := Clause{Attribute: "country", Op: OperatorIn, Values: []interface{}{"us"}}
	user := NewUserBuilder("u1").Country("us").Build()
	assert.True(t, clauseMatchesUserNoSegments(clause, user))

	clause.Negate = true
	assert.False(t, clauseMatchesUserNoSegments(clause, user))
}

func TestClauseMatchesUserNoSegmentsMissingAttributeNeverMatches(t *testing.T) {
	clause := Clause{Attribute: "country", Op: OperatorIn, Values: []interface{}{"us"}}
	user := NewUser("u1")
	assert.False(t, clauseMatchesUserNoSegments(clause, user))
	// A missing attribute never matches, even negated: Negate only flips the comparison result.
	clause.Negate = true
	assert.False(t, clauseMatchesUserNoSegments(clause, user))
}
