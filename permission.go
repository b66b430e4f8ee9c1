package apikit

import (
	"errors"
	"net/http"
)

// Permission decides whether a request may reach an endpoint. A nil
// error grants access; any other error is written to the client, with
// plain errors reported as 403.
type Permission interface {
	Allow(r *http.Request) error
}

// PermissionFunc adapts a function to Permission.
type PermissionFunc func(r *http.Request) error

// Allow calls f(r).
func (f PermissionFunc) Allow(r *http.Request) error { return f(r) }

// AllowAny grants every request.
var AllowAny Permission = PermissionFunc(func(*http.Request) error { return nil })

// DenyAll rejects every request.
var DenyAll Permission = PermissionFunc(func(*http.Request) error {
	return Forbidden("You're not permitted to access this resource")
})

// AllOf grants access only when every permission does. The first
// rejection is returned.
func AllOf(perms ...Permission) Permission {
	return PermissionFunc(func(r *http.Request) error {
		for _, p := range perms {
			if err := p.Allow(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// AnyOf grants access when at least one permission does. When all of them
// reject, the last rejection is returned.
func AnyOf(perms ...Permission) Permission {
	return PermissionFunc(func(r *http.Request) error {
		err := Forbidden("You're not permitted to access this resource")
		for _, p := range perms {
			if err = p.Allow(r); err == nil {
				return nil
			}
		}
		return err
	})
}

// Not inverts p.
func Not(p Permission) Permission {
	return PermissionFunc(func(r *http.Request) error {
		if err := p.Allow(r); err != nil {
			return nil
		}
		return Forbidden("You're not permitted to access this resource")
	})
}

// checkPermission wraps next so that p is consulted first.
func checkPermission(p Permission, next http.Handler, onErr ErrorHandler) http.Handler {
	if p == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := p.Allow(r); err != nil {
			var sc StatusCoder
			if !errors.As(err, &sc) {
				err = Forbidden(err.Error())
			}
			onErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
