package user

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

type Role string

const (
	RolePrefix     = "ROLE_"
	RoleDefault    = Role("ROLE_USER")
	RoleSuperAdmin = Role("ROLE_SUPER_ADMIN")
)

var rolePattern = regexp.MustCompile(`^ROLE_[A-Z0-9]+(_[A-Z0-9]+)*$`)

var roleSeparators = strings.NewReplacer("-", "_", ".", "_", " ", "_")

// NewRole normalizes a raw role name to the ROLE_UPPER_SNAKE convention
// and rejects names that still do not match it.
func NewRole(raw string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = roleSeparators.Replace(name)
	if name != "" && !strings.HasPrefix(name, RolePrefix) {
		name = RolePrefix + name
	}
	err := validation.Validate(
		name,
		validation.Required,
		validation.Length(len(RolePrefix)+1, 128),
		validation.Match(rolePattern),
	)
	if err != nil {
		return Role(""), &InvalidRoleError{Raw: raw, Reason: err.Error()}
	}
	return Role(name), nil
}

type Roles []Role

func (r Roles) Contains(role Role) bool {
	for _, item := range r {
		if item == role {
			return true
		}
	}
	return false
}

// With returns false if the role is already present.
func (r Roles) With(role Role) (Roles, bool) {
	if r.Contains(role) {
		return r, false
	}
	return append(r.Clone(), role), true
}

// Without returns false if the role is absent.
func (r Roles) Without(role Role) (Roles, bool) {
	if !r.Contains(role) {
		return r, false
	}
	result := make(Roles, 0, len(r)-1)
	for _, item := range r {
		if item != role {
			result = append(result, item)
		}
	}
	return result, true
}

func (r Roles) Clone() Roles {
	if r == nil {
		return nil
	}
	result := make(Roles, len(r))
	copy(result, r)
	return result
}

func (r Roles) Strings() []string {
	result := make([]string, len(r))
	for i, item := range r {
		result[i] = string(item)
	}
	return result
}

func RolesFromStrings(raw []string) Roles {
	result := make(Roles, 0, len(raw))
	for _, item := range raw {
		role := Role(item)
		if !result.Contains(role) {
			result = append(result, role)
		}
	}
	return result
}
