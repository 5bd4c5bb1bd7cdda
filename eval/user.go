// Package eval implements the flag evaluator: a pure function of a flag, a user, and the data-store
// views the caller supplies, producing an evaluation detail plus a record of any prerequisite
// evaluations along the way. It performs no I/O of its own.
package eval

import "sort"

// stringAttributes lists the nine string-valued user attributes. The event formatter does not read
// this list; its user filter handles each attribute field directly.
var stringAttributes = []string{
	"key", "secondary", "ip", "country", "email", "firstName", "lastName", "avatar", "name",
}

// User represents the subject of a flag evaluation. Key is the only required field. Custom may
// hold arbitrary additional attributes used by clause matching.
type User struct {
	Key       string
	Secondary *string
	IP        *string
	Country   *string
	Email     *string
	FirstName *string
	LastName  *string
	Avatar    *string
	Name      *string
	Anonymous bool
	Custom    map[string]interface{}
}

// NewUser creates a User with only a key set.
func NewUser(key string) User {
	return User{Key: key}
}

// GetAttribute looks up a named attribute for clause matching. The nine string attributes
// (including "key") and "anonymous" are handled directly; anything else is looked up in Custom.
// It returns nil if the attribute is absent.
func (u User) GetAttribute(name string) interface{} {
	switch name {
	case "key":
		return u.Key
	case "secondary":
		return derefOrNil(u.Secondary)
	case "ip":
		return derefOrNil(u.IP)
	case "country":
		return derefOrNil(u.Country)
	case "email":
		return derefOrNil(u.Email)
	case "firstName":
		return derefOrNil(u.FirstName)
	case "lastName":
		return derefOrNil(u.LastName)
	case "avatar":
		return derefOrNil(u.Avatar)
	case "name":
		return derefOrNil(u.Name)
	case "anonymous":
		return u.Anonymous
	default:
		if u.Custom == nil {
			return nil
		}
		v, ok := u.Custom[name]
		if !ok {
			return nil
		}
		return v
	}
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// StringAttribute returns one of the nine string attributes (including "key") as a string
// pointer, or nil if unset. Neither clause matching nor the event formatter calls it.
func (u User) StringAttribute(name string) *string {
	switch name {
	case "key":
		k := u.Key
		return &k
	case "secondary":
		return u.Secondary
	case "ip":
		return u.IP
	case "country":
		return u.Country
	case "email":
		return u.Email
	case "firstName":
		return u.FirstName
	case "lastName":
		return u.LastName
	case "avatar":
		return u.Avatar
	case "name":
		return u.Name
	default:
		return nil
	}
}

// CustomAttributeNames returns the sorted names of the user's custom attributes, for deterministic
// private-attribute scrubbing.
func (u User) CustomAttributeNames() []string {
	if len(u.Custom) == 0 {
		return nil
	}
	names := make([]string, 0, len(u.Custom))
	for k := range u.Custom {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ContextKind returns the wire-format context kind for this user: "anonymousUser" if the user is
// anonymous, otherwise "user".
func (u User) ContextKind() string {
	if u.Anonymous {
		return "anonymousUser"
	}
	return "user"
}

// UserBuilder builds a User one attribute at a time, rather than requiring struct-literal
// construction.
type UserBuilder struct {
	user User
}

// NewUserBuilder starts building a User with the given key.
func NewUserBuilder(key string) *UserBuilder {
	return &UserBuilder{user: User{Key: key}}
}

// Secondary sets the secondary key attribute.
func (b *UserBuilder) Secondary(v string) *UserBuilder { b.user.Secondary = &v; return b }

// IP sets the IP attribute.
func (b *UserBuilder) IP(v string) *UserBuilder { b.user.IP = &v; return b }

// Country sets the country attribute.
func (b *UserBuilder) Country(v string) *UserBuilder { b.user.Country = &v; return b }

// Email sets the email attribute.
func (b *UserBuilder) Email(v string) *UserBuilder { b.user.Email = &v; return b }

// FirstName sets the first name attribute.
func (b *UserBuilder) FirstName(v string) *UserBuilder { b.user.FirstName = &v; return b }

// LastName sets the last name attribute.
func (b *UserBuilder) LastName(v string) *UserBuilder { b.user.LastName = &v; return b }

// Avatar sets the avatar attribute.
func (b *UserBuilder) Avatar(v string) *UserBuilder { b.user.Avatar = &v; return b }

// Name sets the name attribute.
func (b *UserBuilder) Name(v string) *UserBuilder { b.user.Name = &v; return b }

// Anonymous sets the anonymous flag.
func (b *UserBuilder) Anonymous(v bool) *UserBuilder { b.user.Anonymous = v; return b }

// Custom sets a custom attribute.
func (b *UserBuilder) Custom(name string, value interface{}) *UserBuilder {
	if b.user.Custom == nil {
		b.user.Custom = make(map[string]interface{})
	}
	b.user.Custom[name] = value
	return b
}

// Build returns the completed User.
func (b *UserBuilder) Build() User {
	return b.user
}
