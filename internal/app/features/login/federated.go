package login

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/domain/models"
)

var errOtherMethod = errors.New("this email is registered with a different sign-in method")

// FindOrCreateFederated resolves a federated identity to a user. Accounts
// are matched by provider subject first, then by email for accounts of the
// same provider that predate subject linking. A new account is created
// when nothing matches; created reports that case.
func FindOrCreateFederated(ctx context.Context, users *userstore.Store, method, subject, email, name, photo string) (u *models.User, created bool, err error) {
	u, err = users.GetByAuthSubject(ctx, method, subject)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return nil, false, err
	}

	if email != "" {
		u, err = users.GetByEmail(ctx, email)
		switch {
		case err == nil && u.AuthMethod == method:
			if err := users.LinkAuthSubject(ctx, u.ID, subject); err != nil {
				return nil, false, err
			}
			u.AuthSubject = subject
			return u, false, nil
		case err == nil:
			return nil, false, errOtherMethod
		case !errors.Is(err, userstore.ErrNotFound):
			return nil, false, err
		}
	}

	if name == "" {
		name = email
	}
	nu, err := users.Create(ctx, models.User{
		FullName:    name,
		Email:       email,
		PhotoURL:    photo,
		AuthMethod:  method,
		AuthSubject: subject,
		Role:        models.RoleUser,
		IsPublic:    true,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Lost a race with a concurrent first sign in.
		if u, err := users.GetByAuthSubject(ctx, method, subject); err == nil {
			return u, false, nil
		}
		return nil, false, errOtherMethod
	}
	if err != nil {
		return nil, false, err
	}
	return &nu, true, nil
}

// IsOtherMethod reports whether err means the email belongs to an account
// using another sign-in method.
func IsOtherMethod(err error) bool { return errors.Is(err, errOtherMethod) }

func (h *Handler) findOrCreate(ctx context.Context, method, subject, email, name, photo string) (*models.User, bool, error) {
	return FindOrCreateFederated(ctx, h.Users, method, subject, email, name, photo)
}
