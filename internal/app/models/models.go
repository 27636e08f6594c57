package models

// Role is the free-form role string stored on a profile.
type Role string

const (
	RoleInstructor Role = "Instructor"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "Super Admin"
	// RoleStudent is assigned to new sign-ups. Any role outside the author
	// roles is treated the same way.
	RoleStudent Role = "Student"
)

// AuthorRoles may use the instructor dashboard.
var AuthorRoles = []Role{RoleInstructor, RoleAdmin, RoleSuperAdmin}

// CanAuthor reports whether role grants access to the instructor dashboard.
// The comparison is exact: "instructor" is not "Instructor".
func CanAuthor(role string) bool {
	for _, r := range AuthorRoles {
		if string(r) == role {
			return true
		}
	}
	return false
}

// Fallback display names for a missing instructor profile.
const (
	AnonymousInstructorLabel = "Anonymous Instructor"
	AnonymousLabel           = "Anonymous"
)
