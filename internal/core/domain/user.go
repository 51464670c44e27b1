package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Username is a normalized account name: trimmed, lower-cased, and limited
// to alphanumeric characters and underscores. Construct through NewUsername;
// the zero value is invalid.
type Username string

// NewUsername normalizes and validates a raw username.
func NewUsername(raw string) (Username, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !validUsername(s) {
		return "", &ValidationError{Field: "username", Reason: "must be non-empty alphanumeric/underscore"}
	}
	return Username(s), nil
}

func validUsername(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch != '_' && !(ch >= 'a' && ch <= 'z') && !(ch >= '0' && ch <= '9') {
			return false
		}
	}
	return true
}

func (u Username) String() string { return string(u) }

// MarshalText lets Username serve as both JSON values and JSON object keys.
func (u Username) MarshalText() ([]byte, error) { return []byte(u), nil }

// UnmarshalText validates on deserialization so a stored or received
// document can never produce an invalid Username.
func (u *Username) UnmarshalText(text []byte) error {
	parsed, err := NewUsername(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Role is a normalized role name: trimmed, lower-cased, non-empty.
type Role string

// Built-in roles of the fleet. RoleAdmin gates role administration, the
// rest gate the file services.
const (
	RoleAdmin    Role = "admin"
	RoleViewer   Role = "viewer"
	RoleUploader Role = "uploader"
	RoleSharer   Role = "sharer"
)

// BuiltinRoles returns every role the fleet defines out of the box.
func BuiltinRoles() []Role {
	return []Role{RoleAdmin, RoleViewer, RoleUploader, RoleSharer}
}

// NewRole normalizes and validates a raw role name.
func NewRole(raw string) (Role, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", &ValidationError{Field: "role", Reason: "must be non-empty"}
	}
	return Role(s), nil
}

func (r Role) String() string { return string(r) }

func (r Role) MarshalText() ([]byte, error) { return []byte(r), nil }

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := NewRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is an unordered, unique collection of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) Add(r Role) { s[r] = struct{}{} }

func (s RoleSet) Remove(r Role) { delete(s, r) }

// Clone returns an independent copy of the set.
func (s RoleSet) Clone() RoleSet {
	clone := make(RoleSet, len(s))
	for r := range s {
		clone[r] = struct{}{}
	}
	return clone
}

// Sorted returns the roles in lexical order, for deterministic output.
func (s RoleSet) Sorted() []Role {
	roles := make([]Role, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// MarshalJSON serializes the set as a sorted JSON array.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var roles []Role
	if err := json.Unmarshal(data, &roles); err != nil {
		return err
	}
	*s = NewRoleSet(roles...)
	return nil
}

// User is an account: a name plus the set of roles granted to it. Roles
// are mutated only through the credential store's role operations.
type User struct {
	Name  Username `json:"name"`
	Roles RoleSet  `json:"roles"`
}

// NewUser builds a user with the given roles.
func NewUser(name Username, roles RoleSet) User {
	if roles == nil {
		roles = NewRoleSet()
	}
	return User{Name: name, Roles: roles}
}

// ValidationError reports input that failed a constructor constraint. It is
// a client error at the API boundary and fatal at config-load time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
