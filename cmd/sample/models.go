package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/bjaus/apikit"
	"github.com/bjaus/apikit/model"
	"github.com/bjaus/apikit/modelview"
)

// CodeConflict marks writes rejected by a database constraint.
const CodeConflict = "CONFLICT"

// userStore exposes the SQLite user table to the generic model endpoints.
type userStore struct {
	*store
}

func (s userStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.user(ctx, id)
	if errors.Is(err, errNotFound) {
		return nil, modelview.ErrNotFound
	}
	return u, err
}

func (s userStore) List(ctx context.Context) ([]*User, error) {
	return s.users(ctx)
}

func (s userStore) Insert(ctx context.Context, users []*User) error {
	return constraintError(s.createUsers(ctx, users))
}

func (s userStore) Update(ctx context.Context, users []*User) error {
	err := s.updateUsers(ctx, users)
	if errors.Is(err, errNotFound) {
		return modelview.ErrNotFound
	}
	return constraintError(err)
}

func (s userStore) Delete(ctx context.Context, ids []uuid.UUID) error {
	return constraintError(s.deleteUsers(ctx, ids))
}

// constraintError reports SQLite constraint violations as 409 conflicts.
func constraintError(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		return apikit.CodedError(http.StatusConflict, CodeConflict, "username is taken")
	case sqlite3.ErrConstraintForeignKey:
		return apikit.CodedError(http.StatusConflict, CodeConflict, "user still has posts or comments")
	default:
		return err
	}
}

// userModels serves generic user operations under <prefix>model/user/.
// Anyone may read and sign up; changes need a known user.
func (b *blog) userModels(prefix string, opts ...apikit.Option) (*apikit.Registry, error) {
	v := &modelview.View[*User, uuid.UUID]{
		Store:        userStore{b.store},
		Serializer:   b.ser,
		Name:         "user",
		New:          func() *User { return &User{Base: model.NewBase()} },
		ReadOnly:     []string{"id", "date_created", "date_updated"},
		PermitGet:    apikit.AllowAny,
		PermitInsert: apikit.AllowAny,
		PermitUpdate: authenticated,
		PermitDelete: authenticated,
		Pages:        b.pages,
	}
	return v.Registry(prefix, opts...)
}
