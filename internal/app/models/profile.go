package models

// Profile is the public face of an identity user. Its id equals the identity
// user id and it is created on sign-up; this application never writes it.
type Profile struct {
	ID       string  `json:"id" db:"id"`
	FullName *string `json:"full_name" db:"full_name"`
	Role     string  `json:"role" db:"role"`
}

// ProfileName is the profile projection embedded into course reads.
type ProfileName struct {
	FullName *string `json:"full_name"`
}

// Name returns the display name or "" when unset.
func (p *ProfileName) Name() string {
	if p == nil || p.FullName == nil {
		return ""
	}
	return *p.FullName
}
