package rbac

// Principal is the authorization view of a user. Inactive principals
// are denied everything; admin principals bypass every check.
type Principal interface {
	IsAdmin() bool
	IsActive() bool
	Permissions() []Permission
}

// HasPermission reports exact-match membership of the permission in
// the principal's granted set.
func HasPermission(p Principal, perm Permission) bool {
	if !p.IsActive() {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	for _, held := range p.Permissions() {
		if held.ID == perm.ID {
			return true
		}
	}
	return false
}

// HasPermissionID reports whether any granted permission carries the id.
func HasPermissionID(p Principal, id string) bool {
	if !p.IsActive() {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	for _, held := range p.Permissions() {
		if held.ID == id {
			return true
		}
	}
	return false
}

// HasLevel reports whether the principal holds any permission in the
// category at or above the required level.
func HasLevel(p Principal, category Category, required Level) bool {
	if !p.IsActive() {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	for _, held := range p.Permissions() {
		if held.Category == category && held.Level.Priority() >= required.Priority() {
			return true
		}
	}
	return false
}

// CanPerform requires the permission itself plus every id in its
// dependency set. The check is one level deep: a dependency's own
// dependencies are not verified and no cycle detection is performed.
func CanPerform(p Principal, perm Permission) bool {
	if !p.IsActive() {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	if !HasPermission(p, perm) {
		return false
	}
	for _, dep := range perm.Dependencies() {
		if !HasPermissionID(p, dep) {
			return false
		}
	}
	return true
}

// PermissionsByCategory filters the principal's grants by category.
func PermissionsByCategory(p Principal, category Category) []Permission {
	var out []Permission
	for _, held := range p.Permissions() {
		if held.Category == category {
			out = append(out, held)
		}
	}
	return out
}
