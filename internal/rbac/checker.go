package rbac

import "strings"

// Checker answers role → permission questions. Grants are exact names, "*",
// or a prefix wildcard such as "result:*".
type Checker struct {
	grants map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{grants: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.grants[role] {
		if matchPerm(g, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(grant, perm string) bool {
	switch {
	case grant == "*" || grant == perm:
		return true
	case strings.HasSuffix(grant, "*"):
		return strings.HasPrefix(perm, strings.TrimSuffix(grant, "*"))
	}
	return false
}
