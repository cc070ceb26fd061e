package session

// Role is the closed set of principal roles known to the platform.
type Role string

const (
	// RoleSuperAdmin is the unrestricted platform operator role.
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin is the administrative staff role.
	RoleAdmin Role = "admin"
	// RoleManager is the operations staff role.
	RoleManager Role = "manager"
	// RoleTeacher is the course-owning instructor role.
	RoleTeacher Role = "teacher"
	// RoleStudent is the default learner role.
	RoleStudent Role = "student"
	// RoleGuest is the unverified visitor role.
	RoleGuest Role = "guest"
)

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleTeacher, RoleStudent, RoleGuest:
		return true
	default:
		return false
	}
}

// Admin reports whether r carries administrative privileges.
func (r Role) Admin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Identity is the signed-in principal as known to the client. It is created
// server-side at registration, fetched on login or session resume, and
// discarded on logout. Phone is the credential-bearing unique key.
type Identity struct {
	ID             string `json:"id"`
	Phone          string `json:"phone"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email,omitempty"`
	Role           Role   `json:"role"`
	TelegramID     int64  `json:"telegram_id,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// Snapshot is a point-in-time copy of the session state. IsAuthenticated is
// derived: it is true exactly when Identity is non-nil, and the Store never
// exposes a state where the two disagree.
type Snapshot struct {
	Identity        *Identity
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
}
