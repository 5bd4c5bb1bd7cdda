package events

import (
	"sort"

	"github.com/fluxflag/go-sdk/eval"
)

// filteredUser is the redacted, ready-to-serialize representation of a user for inclusion in an
// analytics event, with private attributes removed and their names listed instead. Key and
// Anonymous are never private.
type filteredUser struct {
	Key               string                 `json:"key"`
	Secondary         *string                `json:"secondary,omitempty"`
	IP                *string                `json:"ip,omitempty"`
	Country           *string                `json:"country,omitempty"`
	Email             *string                `json:"email,omitempty"`
	FirstName         *string                `json:"firstName,omitempty"`
	LastName          *string                `json:"lastName,omitempty"`
	Avatar            *string                `json:"avatar,omitempty"`
	Name              *string                `json:"name,omitempty"`
	Anonymous         bool                   `json:"anonymous,omitempty"`
	Custom            map[string]interface{} `json:"custom,omitempty"`
	PrivateAttributes []string               `json:"privateAttrs,omitempty"`
}

// userFilter redacts configured private attributes out of a user before it is sent in an
// analytics event, against a single global-configuration model (EventsConfiguration's
// AllAttributesPrivate / PrivateAttributeNames).
type userFilter struct {
	allAttributesPrivate bool
	globalPrivate        map[string]bool
}

func newUserFilter(config EventsConfiguration) userFilter {
	global := make(map[string]bool, len(config.PrivateAttributeNames))
	for _, name := range config.PrivateAttributeNames {
		global[name] = true
	}
	return userFilter{
		allAttributesPrivate: config.AllAttributesPrivate,
		globalPrivate:        global,
	}
}

func (f userFilter) isPrivate(name string) bool {
	return f.allAttributesPrivate || f.globalPrivate[name]
}

// scrubUser returns the redacted representation of user, along with the sorted list of attribute
// names that were removed.
func (f userFilter) scrubUser(user eval.User) filteredUser {
	out := filteredUser{Key: user.Key, Anonymous: user.Anonymous}
	var removed []string

	setIfNotPrivate := func(name string, value *string, dest **string) {
		if value == nil {
			return
		}
		if f.isPrivate(name) {
			removed = append(removed, name)
			return
		}
		*dest = value
	}

	setIfNotPrivate("secondary", user.Secondary, &out.Secondary)
	setIfNotPrivate("ip", user.IP, &out.IP)
	setIfNotPrivate("country", user.Country, &out.Country)
	setIfNotPrivate("email", user.Email, &out.Email)
	setIfNotPrivate("firstName", user.FirstName, &out.FirstName)
	setIfNotPrivate("lastName", user.LastName, &out.LastName)
	setIfNotPrivate("avatar", user.Avatar, &out.Avatar)
	setIfNotPrivate("name", user.Name, &out.Name)

	if len(user.Custom) > 0 {
		out.Custom = make(map[string]interface{}, len(user.Custom))
		for _, name := range user.CustomAttributeNames() {
			if f.isPrivate(name) {
				removed = append(removed, name)
				continue
			}
			out.Custom[name] = user.Custom[name]
		}
		if len(out.Custom) == 0 {
			out.Custom = nil
		}
	}

	sort.Strings(removed)
	out.PrivateAttributes = removed
	return out
}
