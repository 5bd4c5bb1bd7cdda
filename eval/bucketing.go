package eval

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strconv"
)

// longScale is the largest value a 15-hex-digit hash can represent, used to normalize a bucketing
// hash into a float in [0, 1).
const longScale = float32(0xFFFFFFFFFFFFFFF)

// bucketUser hashes a user into a bucket in [0, 1) for a given flag/segment key and salt, bucketing
// on the named attribute (returning bucket 0 if the attribute has no string or int value),
// including the secondary-key convention of appending ".secondary" to the id before hashing.
func bucketUser(user User, key, bucketBy, salt string) float32 {
	idHash, ok := bucketableStringValue(user, bucketBy)
	if !ok {
		return 0
	}
	if user.Secondary != nil {
		idHash = idHash + "." + *user.Secondary
	}
	h := sha1.New()
	_, _ = io.WriteString(h, key+"."+salt+"."+idHash)
	hash := hex.EncodeToString(h.Sum(nil))[:15]
	intVal, err := parseIntLenient(hash)
	if err != nil {
		return 0
	}
	return float32(intVal) / longScale
}

func bucketableStringValue(user User, attr string) (string, bool) {
	if attr == "key" {
		return user.Key, true
	}
	v := user.GetAttribute(attr)
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	default:
		return "", false
	}
}
