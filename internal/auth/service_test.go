// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfreg/selfreg/internal/auth"
	"github.com/selfreg/selfreg/internal/member"
	"github.com/selfreg/selfreg/internal/member/membertest"
	"github.com/selfreg/selfreg/pkg/errutil"
)

type serviceFixture struct {
	svc      *auth.Service
	repo     *membertest.MemRepository
	sessions *auth.SessionManager
	tokens   *auth.TokenIssuer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := membertest.NewMemRepository()
	validator, err := member.NewValidator(repo)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer([]byte("test-secret"), repo)
	require.NoError(t, err)
	sessions := auth.NewSessionManager(time.Hour)

	svc, err := auth.NewService(repo, validator, auth.NewArgon2idHasher(), tokens, sessions, nil)
	require.NoError(t, err)

	return &serviceFixture{svc: svc, repo: repo, sessions: sessions, tokens: tokens}
}

func registrationInput(email string) *member.RegistrationInput {
	return &member.RegistrationInput{
		FullName:        "Ada Lovelace",
		Email:           email,
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
		PhoneNumber:     "+44 20 7946 0958",
		Country:         "United Kingdom",
		Interests:       []string{"mathematics", "poetry"},
		PhotoRef:        "photos/ada.jpg",
	}
}

func TestNewService_Validation(t *testing.T) {
	f := newServiceFixture(t)
	validator, err := member.NewValidator(f.repo)
	require.NoError(t, err)

	tests := []struct {
		name  string
		build func() (*auth.Service, error)
	}{
		{"nil repository", func() (*auth.Service, error) {
			return auth.NewService(nil, validator, auth.NewArgon2idHasher(), f.tokens, f.sessions, nil)
		}},
		{"nil validator", func() (*auth.Service, error) {
			return auth.NewService(f.repo, nil, auth.NewArgon2idHasher(), f.tokens, f.sessions, nil)
		}},
		{"nil hasher", func() (*auth.Service, error) {
			return auth.NewService(f.repo, validator, nil, f.tokens, f.sessions, nil)
		}},
		{"nil token issuer", func() (*auth.Service, error) {
			return auth.NewService(f.repo, validator, auth.NewArgon2idHasher(), nil, f.sessions, nil)
		}},
		{"nil session manager", func() (*auth.Service, error) {
			return auth.NewService(f.repo, validator, auth.NewArgon2idHasher(), f.tokens, nil, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INIT_FAILED")
		})
	}
}

func TestRegister_Success(t *testing.T) {
	f := newServiceFixture(t)

	result, fieldErrs, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)
	require.False(t, fieldErrs.Any())
	require.NotNil(t, result)

	// Stored member carries a hash, never the password.
	stored, err := f.repo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Equal(t, []string{"mathematics", "poetry"}, stored.Interests)

	// Registration signs the member in immediately.
	require.NotNil(t, result.Session)
	assert.Equal(t, stored.ID, result.Session.MemberID)
	assert.NotNil(t, f.sessions.Get(result.Session.ID))
}

func TestRegister_ValidationFailureHasNoSideEffects(t *testing.T) {
	f := newServiceFixture(t)

	in := registrationInput("ada@example.com")
	in.Password = "short"
	in.ConfirmPassword = "short"

	result, fieldErrs, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Contains(t, fieldErrs, "password")

	count, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.sessions.Len())
}

func TestRegister_DuplicateEmailLeavesCountUnchanged(t *testing.T) {
	f := newServiceFixture(t)

	_, fieldErrs, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)
	require.False(t, fieldErrs.Any())

	result, fieldErrs, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Contains(t, fieldErrs, "email")

	count, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRegister_StoreFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.ForcedErr = errors.New("connection refused")

	result, fieldErrs, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Nil(t, fieldErrs)
}

func TestLogin_Success(t *testing.T) {
	f := newServiceFixture(t)
	_, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	result, fieldErrs, err := f.svc.Login(context.Background(), "ada@example.com", "correct horse", false)
	require.NoError(t, err)
	require.False(t, fieldErrs.Any())
	require.NotNil(t, result)

	assert.Equal(t, "ada@example.com", result.Member.Email)
	assert.NotNil(t, f.sessions.Get(result.Session.ID))
	assert.Empty(t, result.RememberToken)
	assert.True(t, result.ClearRemember)
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	f := newServiceFixture(t)
	_, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	result, fieldErrs, err := f.svc.Login(context.Background(), "ADA@Example.COM", "correct horse", false)
	require.NoError(t, err)
	require.False(t, fieldErrs.Any())
	assert.NotNil(t, result)
}

func TestLogin_RememberMeIssuesToken(t *testing.T) {
	f := newServiceFixture(t)
	_, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	result, _, err := f.svc.Login(context.Background(), "ada@example.com", "correct horse", true)
	require.NoError(t, err)
	require.NotEmpty(t, result.RememberToken)
	assert.False(t, result.ClearRemember)

	// The issued token verifies against the stored member.
	ok, err := f.tokens.Verify(context.Background(), result.Member.ID, result.RememberToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogin_FailureMessagesAreIdentical(t *testing.T) {
	f := newServiceFixture(t)
	_, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	// Unknown email and wrong password must produce byte-identical
	// messages so responses don't reveal which accounts exist.
	_, unknownEmail, err := f.svc.Login(context.Background(), "ghost@example.com", "whatever pw", false)
	require.NoError(t, err)
	_, wrongPassword, err := f.svc.Login(context.Background(), "ada@example.com", "wrong password", false)
	require.NoError(t, err)

	require.Contains(t, unknownEmail, "email")
	require.Contains(t, wrongPassword, "password")
	assert.Equal(t, unknownEmail["email"], wrongPassword["password"])
	assert.Equal(t, auth.InvalidCredentialsMessage, unknownEmail["email"])
}

func TestLogin_MissingFields(t *testing.T) {
	f := newServiceFixture(t)

	_, fieldErrs, err := f.svc.Login(context.Background(), "", "", false)
	require.NoError(t, err)
	assert.Contains(t, fieldErrs, "email")
	assert.Contains(t, fieldErrs, "password")
}

func TestLogout(t *testing.T) {
	f := newServiceFixture(t)
	result, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	f.svc.Logout(result.Session.ID)
	assert.Nil(t, f.svc.CurrentSession(result.Session.ID))

	// Logging out an unknown session is a no-op.
	f.svc.Logout("unknown")
}

func TestRestoreFromToken(t *testing.T) {
	f := newServiceFixture(t)
	reg, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	login, _, err := f.svc.Login(context.Background(), "ada@example.com", "correct horse", true)
	require.NoError(t, err)

	session, err := f.svc.RestoreFromToken(context.Background(), reg.Member.ID, login.RememberToken)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, reg.Member.ID, session.MemberID)
	assert.NotNil(t, f.sessions.Get(session.ID))
}

func TestRestoreFromToken_InvalidTokenFailsClosed(t *testing.T) {
	f := newServiceFixture(t)
	reg, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)

	session, err := f.svc.RestoreFromToken(context.Background(), reg.Member.ID, "tampered")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRestoreFromToken_DeletedMember(t *testing.T) {
	f := newServiceFixture(t)
	reg, _, err := f.svc.Register(context.Background(), registrationInput("ada@example.com"))
	require.NoError(t, err)
	login, _, err := f.svc.Login(context.Background(), "ada@example.com", "correct horse", true)
	require.NoError(t, err)

	_, err = f.repo.DeleteByIDs(context.Background(), []int64{reg.Member.ID})
	require.NoError(t, err)

	session, err := f.svc.RestoreFromToken(context.Background(), reg.Member.ID, login.RememberToken)
	require.NoError(t, err)
	assert.Nil(t, session)
}
