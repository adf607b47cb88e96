package auth

// UserStatus is the lifecycle status of a user account
type UserStatus string

const (
	// UserStatusPending is a created account that has not been activated yet
	UserStatusPending UserStatus = "Pending"
	// UserStatusActive is the only status allowed to authenticate
	UserStatusActive UserStatus = "Active"
	// UserStatusSuspended is a temporarily blocked account
	UserStatusSuspended UserStatus = "Suspended"
	// UserStatusInactive is an offboarded account
	UserStatusInactive UserStatus = "Inactive"
)

// IsValid checks if the status is one of the predefined statuses
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusSuspended, UserStatusInactive:
		return true
	default:
		return false
	}
}

// String satisfies fmt.Stringer
func (s UserStatus) String() string {
	return string(s)
}

// CanAuthenticate reports whether accounts in this status may log in
// or pass the request guard.
func (s UserStatus) CanAuthenticate() bool {
	return s == UserStatusActive
}

// ParseStatus safely parses a string into a UserStatus type
func ParseStatus(statusStr string) (UserStatus, bool) {
	status := UserStatus(statusStr)
	return status, status.IsValid()
}
