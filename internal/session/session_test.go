package session

import (
	"context"
	"errors"
	"testing"
)

func TestAuthenticate(t *testing.T) {
	users := DefaultUsers()

	u, err := Authenticate(users, "Admin", "password123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if u.FullName != "System Administrator" || u.Role != RoleAdmin {
		t.Errorf("user = %+v", u)
	}
	if u.Password != "" {
		t.Error("signed-in user must not carry the password")
	}

	if _, err := Authenticate(users, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := Authenticate(users, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != nil {
		t.Error("empty context should carry no user")
	}

	u := &User{Username: "operator1", FullName: "Operator One"}
	got := FromContext(WithUser(ctx, u))
	if got != u {
		t.Errorf("FromContext() = %v, want %v", got, u)
	}
	if DisplayName(got) != "Operator One (operator1)" {
		t.Errorf("DisplayName() = %q", DisplayName(got))
	}
	if DisplayName(nil) != "not signed in" {
		t.Errorf("DisplayName(nil) = %q", DisplayName(nil))
	}
}

func TestCan(t *testing.T) {
	users := DefaultUsers()
	admin, operator := users[0], users[1]

	if !admin.Can("anything") {
		t.Error("admin holds every permission")
	}
	if !operator.Can("devices:write") {
		t.Error("operator should hold devices:write")
	}
	if operator.Can("rules:write") {
		t.Error("operator should not hold rules:write")
	}
	var nobody *User
	if nobody.Can("devices:read") {
		t.Error("nil user holds nothing")
	}
}
