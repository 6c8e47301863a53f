package credential

// Role is the account role reported by the backend.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the user record stored next to the primary token.
//
// Some backend responses carry the identifier as "id" instead of "_id"; both are kept and
// [User.Identifier] picks whichever is set.
type User struct {
	ID       string `json:"_id,omitempty"`
	AltID    string `json:"id,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Photo    string `json:"photo,omitempty"`
}

// Identifier returns the user id, preferring "_id".
func (u User) Identifier() string {
	if u.ID != "" {
		return u.ID
	}
	return u.AltID
}
