package auth

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel          `bun:"table:users,alias:usr"`
	ID                     uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                   string     `bun:"name,notnull" json:"name,omitempty"`
	Avatar                 string     `bun:"avatar" json:"avatar,omitempty"`
	Email                  string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                  string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash           string     `bun:"password_hash" json:"-"`
	Role                   UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status                 UserStatus `bun:"status,notnull" json:"status,omitempty"`
	PasswordChangedAt      *time.Time `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	LastSignInAt           *time.Time `bun:"last_sign_in_at,nullzero" json:"last_sign_in_at,omitempty"`
	RefreshToken           string     `bun:"refresh_token" json:"-"`
	RefreshTokenExpiresAt  *time.Time `bun:"refresh_token_expires_at,nullzero" json:"-"`
	PasswordResetToken     string     `bun:"password_reset_token" json:"-"`
	PasswordResetExpiresAt *time.Time `bun:"password_reset_expires_at,nullzero" json:"-"`
	SuspendedAt            *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt              *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt              *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the default status for legacy rows
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// EnsureRole backfills the default role
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleEmployee
	}
}

// EnsureAvatar recomputes the avatar initials from the current name
func (u *User) EnsureAvatar() {
	if u.Name != "" {
		u.Avatar = AvatarInitials(u.Name)
	}
}

// ChangedPasswordAfter reports whether the password was changed after the
// given instant. Comparison happens at second granularity to match the iat
// resolution of JWTs.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return t.Unix() < u.PasswordChangedAt.Unix()
}

// HasLiveRefreshToken reports whether the stored refresh token is usable at
// the given instant.
func (u *User) HasLiveRefreshToken(now time.Time) bool {
	if u.RefreshToken == "" || u.RefreshTokenExpiresAt == nil {
		return false
	}
	return u.RefreshTokenExpiresAt.After(now)
}

// Sanitize projects the user into its public shape
func (u *User) Sanitize() *UserSummary {
	if u == nil {
		return nil
	}

	avatar := u.Avatar
	if avatar == "" {
		avatar = AvatarInitials(u.Name)
	}

	return &UserSummary{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Avatar: avatar,
		Status: u.Status,
	}
}

// Identity adapts the user to the Identity interface
func (u *User) Identity() Identity {
	return userIdentity{user: u}
}

// UserSummary is the sanitized user projection returned by the API.
// Credential and token columns never appear here.
type UserSummary struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   UserRole   `json:"role"`
	Avatar string     `json:"avatar"`
	Status UserStatus `json:"status"`
}

type userIdentity struct {
	user *User
}

func (i userIdentity) ID() string {
	return i.user.ID.String()
}

func (i userIdentity) Name() string {
	return i.user.Name
}

func (i userIdentity) Email() string {
	return i.user.Email
}

func (i userIdentity) Role() string {
	return string(i.user.Role)
}

// AvatarInitials derives the uppercase initials from a display name,
// capped at two characters.
func AvatarInitials(name string) string {
	fields := strings.Fields(name)
	initials := make([]rune, 0, 2)

	for _, field := range fields {
		for _, r := range field {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				initials = append(initials, unicode.ToUpper(r))
			}
			break
		}
		if len(initials) == 2 {
			break
		}
	}

	return string(initials)
}

// NormalizeEmail lowercases and trims an email before lookups and writes
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
