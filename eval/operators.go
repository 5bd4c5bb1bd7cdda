package eval

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
)

// Operator names a clause comparison operator, matching the wire-format strings used by flag data.
type Operator string

// Supported operators.
const (
	OperatorIn                 Operator = "in"
	OperatorEndsWith           Operator = "endsWith"
	OperatorStartsWith         Operator = "startsWith"
	OperatorMatches            Operator = "matches"
	OperatorContains           Operator = "contains"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemVerEqual        Operator = "semVerEqual"
	OperatorSemVerLessThan     Operator = "semVerLessThan"
	OperatorSemVerGreaterThan  Operator = "semVerGreaterThan"
	OperatorSegmentMatch       Operator = "segmentMatch"
)

type opFn func(userValue, clauseValue interface{}) bool

var allOps = map[Operator]opFn{
	OperatorIn:                 operatorInFn,
	OperatorEndsWith:           stringOp(strings.HasSuffix),
	OperatorStartsWith:         stringOp(strings.HasPrefix),
	OperatorMatches:            operatorMatchesFn,
	OperatorContains:           stringOp(strings.Contains),
	OperatorLessThan:           numericOp(func(a, b float64) bool { return a < b }),
	OperatorLessThanOrEqual:    numericOp(func(a, b float64) bool { return a <= b }),
	OperatorGreaterThan:        numericOp(func(a, b float64) bool { return a > b }),
	OperatorGreaterThanOrEqual: numericOp(func(a, b float64) bool { return a >= b }),
	OperatorBefore:             dateOp(func(a, b time.Time) bool { return a.Before(b) }),
	OperatorAfter:              dateOp(func(a, b time.Time) bool { return a.After(b) }),
	OperatorSemVerEqual:        semVerOp(func(c int) bool { return c == 0 }),
	OperatorSemVerLessThan:     semVerOp(func(c int) bool { return c < 0 }),
	OperatorSemVerGreaterThan:  semVerOp(func(c int) bool { return c > 0 }),
}

func operatorInFn(u, c interface{}) bool {
	if u == c {
		return true
	}
	return numericOp(func(a, b float64) bool { return a == b })(u, c)
}

func operatorMatchesFn(u, c interface{}) bool {
	us, ok := u.(string)
	if !ok {
		return false
	}
	cs, ok := c.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(cs)
	if err != nil {
		return false
	}
	return re.MatchString(us)
}

func stringOp(fn func(s, substr string) bool) opFn {
	return func(u, c interface{}) bool {
		us, ok := u.(string)
		if !ok {
			return false
		}
		cs, ok := c.(string)
		if !ok {
			return false
		}
		return fn(us, cs)
	}
}

func numericOp(fn func(a, b float64) bool) opFn {
	return func(u, c interface{}) bool {
		uf, ok := toFloat(u)
		if !ok {
			return false
		}
		cf, ok := toFloat(c)
		if !ok {
			return false
		}
		return fn(uf, cf)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func dateOp(fn func(a, b time.Time) bool) opFn {
	return func(u, c interface{}) bool {
		ut, ok := parseDateTime(u)
		if !ok {
			return false
		}
		ct, ok := parseDateTime(c)
		if !ok {
			return false
		}
		return fn(ut, ct)
	}
}

// parseDateTime accepts either an RFC3339Nano string or a number of milliseconds since the epoch.
func parseDateTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case float64:
		return millisToTime(val), true
	case float32:
		return millisToTime(float64(val)), true
	case int64:
		return millisToTime(float64(val)), true
	case int:
		return millisToTime(float64(val)), true
	}
	return time.Time{}, false
}

func millisToTime(ms float64) time.Time {
	secs := int64(ms / 1000)
	nanos := int64(ms-float64(secs)*1000) * int64(time.Millisecond)
	return time.Unix(secs, nanos).UTC()
}

func semVerOp(test func(cmp int) bool) opFn {
	return func(u, c interface{}) bool {
		uv, ok := parseSemVer(u)
		if !ok {
			return false
		}
		cv, ok := parseSemVer(c)
		if !ok {
			return false
		}
		return test(uv.Compare(cv))
	}
}

var semVerMissingPartRE = regexp.MustCompile(`^\d+(\.\d+)?$`)

// parseSemVer is lenient about partial versions ("2", "2.0"), zero-padding them out to full semver
// before delegating to github.com/blang/semver.
func parseSemVer(v interface{}) (semver.Version, bool) {
	s, ok := v.(string)
	if !ok {
		return semver.Version{}, false
	}
	if parsed, err := semver.Parse(s); err == nil {
		return parsed, true
	}
	if semVerMissingPartRE.MatchString(s) {
		parts := strings.Split(s, ".")
		for len(parts) < 3 {
			parts = append(parts, "0")
		}
		if parsed, err := semver.Parse(strings.Join(parts, ".")); err == nil {
			return parsed, true
		}
	}
	return semver.Version{}, false
}

// matchAny applies op to each candidate in values against the clause's operand values, returning
// true if any combination matches.
func matchAny(fn opFn, value interface{}, values []interface{}) bool {
	for _, v := range values {
		if fn(value, v) {
			return true
		}
	}
	return false
}

func parseIntLenient(s string) (int64, error) {
	return strconv.ParseInt(s, 16, 64)
}
