package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxflag/go-sdk/eval"
)

func testUser() eval.User {
	return eval.NewUserBuilder("user1").
		Email("a@example.com").
		Name("A User").
		Custom("shoeSize", 10).
		Build()
}

func TestUserFilterNoPrivateAttributesKeepsEverything(t *testing.T) {
	f := newUserFilter(EventsConfiguration{})
	out := f.scrubUser(testUser())

	assert.Equal(t, "user1", out.Key)
	assert.Equal(t, "a@example.com", *out.Email)
	assert.Equal(t, "A User", *out.Name)
	assert.Equal(t, 10, out.Custom["shoeSize"])
	assert.Empty(t, out.PrivateAttributes)
}

func TestUserFilterRedactsNamedAttribute(t *testing.T) {
	f := newUserFilter(EventsConfiguration{PrivateAttributeNames: []string{"email"}})
	out := f.scrubUser(testUser())

	assert.Nil(t, out.Email)
	assert.Equal(t, "A User", *out.Name)
	assert.Equal(t, []string{"email"}, out.PrivateAttributes)
}

func TestUserFilterRedactsCustomAttribute(t *testing.T) {
	f := newUserFilter(EventsConfiguration{PrivateAttributeNames: []string{"shoeSize"}})
	out := f.scrubUser(testUser())

	assert.NotContains(t, out.Custom, "shoeSize")
	assert.Equal(t, []string{"shoeSize"}, out.PrivateAttributes)
}

func TestUserFilterAllAttributesPrivateRedactsEverythingButKey(t *testing.T) {
	f := newUserFilter(EventsConfiguration{AllAttributesPrivate: true})
	out := f.scrubUser(testUser())

	assert.Equal(t, "user1", out.Key)
	assert.Nil(t, out.Email)
	assert.Nil(t, out.Name)
	assert.Empty(t, out.Custom)
	assert.ElementsMatch(t, []string{"email", "name", "shoeSize"}, out.PrivateAttributes)
}

func TestUserFilterKeyAndAnonymousAreNeverPrivate(t *testing.T) {
	f := newUserFilter(EventsConfiguration{AllAttributesPrivate: true})
	user := eval.NewUserBuilder("user1").Anonymous(true).Build()
	out := f.scrubUser(user)

	assert.Equal(t, "user1", out.Key)
	assert.True(t, out.Anonymous)
}
