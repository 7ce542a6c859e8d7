package provision

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// FirebaseAccounts manages users through the Firebase Admin SDK. The role is
// stored as a custom claim so ID tokens carry it.
type FirebaseAccounts struct {
	client *auth.Client
}

func NewFirebaseAccounts(client *auth.Client) *FirebaseAccounts {
	return &FirebaseAccounts{client: client}
}

func (f *FirebaseAccounts) LookupByEmail(ctx context.Context, email string) (*Account, bool, error) {
	u, err := f.client.GetUserByEmail(ctx, email)
	if auth.IsUserNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &Account{UID: u.UID, Email: u.Email}, true, nil
}

func (f *FirebaseAccounts) Create(ctx context.Context, spec AccountSpec) (*Account, error) {
	params := (&auth.UserToCreate{}).
		Email(spec.Email).
		Password(spec.Password).
		EmailVerified(true)
	if spec.FullName != "" {
		params = params.DisplayName(spec.FullName)
	}

	u, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := f.setRole(ctx, u.UID, spec.Role); err != nil {
		return nil, err
	}
	return &Account{UID: u.UID, Email: u.Email}, nil
}

func (f *FirebaseAccounts) Update(ctx context.Context, uid string, spec AccountSpec) error {
	params := (&auth.UserToUpdate{}).Password(spec.Password)
	if spec.FullName != "" {
		params = params.DisplayName(spec.FullName)
	}
	if _, err := f.client.UpdateUser(ctx, uid, params); err != nil {
		return err
	}
	return f.setRole(ctx, uid, spec.Role)
}

func (f *FirebaseAccounts) setRole(ctx context.Context, uid, role string) error {
	if err := f.client.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": role}); err != nil {
		return fmt.Errorf("set role claim: %w", err)
	}
	return nil
}
