package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketUserIsStableAndInRange(t *testing.T) {
	user := NewUser("user1")
	b1 := bucketUser(user, "flagkey", "key", "salt1")
	b2 := bucketUser(user, "flagkey", "key", "salt1")
	assert.Equal(t, b1, b2)
	assert.True(t, b1 >= 0 && b1 < 1)
}

func TestBucketUserDiffersBySalt(t *testing.T) {
	user := NewUser("user1")
	b1 := bucketUser(user, "flagkey", "key", "salt1")
	b2 := bucketUser(user, "flagkey", "key", "salt2")
	assert.NotEqual(t, b1, b2)
}

func TestBucketUserUsesSecondaryKey(t *testing.T) {
	plain := NewUser("user1")
	withSecondary := NewUserBuilder("user1").Secondary("extra").Build()
	b1 := bucketUser(plain, "flagkey", "key", "salt1")
	b2 := bucketUser(withSecondary, "flagkey", "key", "salt1")
	assert.NotEqual(t, b1, b2)
}

func TestBucketUserFallsBackToZeroForMissingAttribute(t *testing.T) {
	user := NewUser("user1")
	b := bucketUser(user, "flagkey", "nonexistent", "salt1")
	assert.Equal(t, float32(0), b)
}

// TestBucketUserMatchesKnownFixture pins the hash output against the reference algorithm's
// published fixture: for key "userKeyA", flag key "hashKey", salt "saltyA", the expected bucket
// value is approximately 0.42157587.
func TestBucketUserMatchesKnownFixture(t *testing.T) {
	user := NewUser("userKeyA")
	b := bucketUser(user, "hashKey", "key", "saltyA")
	assert.InDelta(t, 0.42157587, float64(b), 0.0000001)
}
