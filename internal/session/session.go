// Package session carries the signed-in operator through a command as an
// explicit context value.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is an operator of the gateway console.
type User struct {
	ID          int64    `yaml:"id" json:"id"`
	Username    string   `yaml:"username" json:"username"`
	FullName    string   `yaml:"full_name" json:"fullName"`
	Company     string   `yaml:"company" json:"company"`
	Role        string   `yaml:"role" json:"role"`
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`

	// Password is only set on account fixtures, never on a signed-in user
	Password string `yaml:"-" json:"-"`
}

// Can reports whether the user holds permission. Admins hold all.
func (u *User) Can(permission string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Public returns a copy without the password.
func (u User) Public() *User {
	u.Password = ""
	u.Permissions = append([]string(nil), u.Permissions...)
	return &u
}

// DefaultUsers are the accounts of the mock gateway.
func DefaultUsers() []User {
	return []User{
		{
			ID: 1, Username: "admin", Password: "password123",
			FullName: "System Administrator", Company: "TCAM Technology", Role: RoleAdmin,
		},
		{
			ID: 2, Username: "operator1", Password: "password123",
			FullName: "Operator One", Company: "TCAM Technology", Role: RoleOperator,
			Permissions: []string{"devices:read", "devices:write", "rules:read"},
		},
	}
}

// Authenticate finds the account matching username and password.
// Usernames are case-insensitive.
func Authenticate(users []User, username, password string) (*User, error) {
	for _, u := range users {
		if !strings.EqualFold(u.Username, username) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1 {
			return u.Public(), nil
		}
		break
	}
	return nil, ErrInvalidCredentials
}

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user carried by ctx, or nil.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKey{}).(*User)
	return u
}

// DisplayName is what the header shows for u.
func DisplayName(u *User) string {
	switch {
	case u == nil:
		return "not signed in"
	case u.FullName != "":
		return u.FullName + " (" + u.Username + ")"
	default:
		return u.Username
	}
}
