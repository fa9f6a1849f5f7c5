// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/selfreg/selfreg/internal/member"
	"github.com/selfreg/selfreg/pkg/errutil"
)

// InvalidCredentialsMessage is the single login failure message. The
// unknown-email and wrong-password branches return it byte-identically so
// responses never reveal whether an account exists.
const InvalidCredentialsMessage = "Invalid email or password."

// dummyPasswordHash is verified against when the email is unknown so both
// login failure branches cost a full hash computation. It is not a
// credential and matches no password.
//
//nolint:gosec // G101: fake hash for timing-attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service orchestrates registration, login, logout, and identity
// restoration from persistent tokens.
type Service struct {
	members   member.Repository
	validator *member.Validator
	hasher    PasswordHasher
	tokens    *TokenIssuer
	sessions  *SessionManager
	logger    *slog.Logger
}

// NewService creates an auth Service.
func NewService(
	members member.Repository,
	validator *member.Validator,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	sessions *SessionManager,
	logger *slog.Logger,
) (*Service, error) {
	switch {
	case members == nil:
		return nil, oops.Code("AUTH_INIT_FAILED").Errorf("member repository is required")
	case validator == nil:
		return nil, oops.Code("AUTH_INIT_FAILED").Errorf("validator is required")
	case hasher == nil:
		return nil, oops.Code("AUTH_INIT_FAILED").Errorf("password hasher is required")
	case tokens == nil:
		return nil, oops.Code("AUTH_INIT_FAILED").Errorf("token issuer is required")
	case sessions == nil:
		return nil, oops.Code("AUTH_INIT_FAILED").Errorf("session manager is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		members:   members,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		sessions:  sessions,
		logger:    logger,
	}, nil
}

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	Member  *member.Member
	Session *Session
}

// Register validates the input, hashes the password, persists the member,
// and establishes an authenticated session. Validation failures come back
// as field errors with no side effects; an email that raced to being
// taken between check and insert surfaces the same way.
func (s *Service) Register(ctx context.Context, in *member.RegistrationInput) (*RegisterResult, member.FieldErrors, error) {
	fieldErrs, err := s.validator.ValidateRegistration(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if fieldErrs.Any() {
		return nil, fieldErrs, nil
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	m := &member.Member{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
		Country:      in.Country,
		City:         member.Optional(in.City),
		Gender:       member.Optional(in.Gender),
		DateOfBirth:  member.Optional(in.DateOfBirth),
		Interests:    in.Interests,
		PhotoRef:     member.Optional(in.PhotoRef),
	}

	if _, err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, member.ErrEmailTaken) {
			// Lost the check-then-insert race; an ordinary validation
			// failure, not a crash.
			return nil, member.FieldErrors{"email": "This email is already registered."}, nil
		}
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create member").
			Wrap(err)
	}

	session, err := s.sessions.Establish(m.ID, m.Email)
	if err != nil {
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "establish session").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "member registered",
		slog.Int64("member_id", m.ID))

	return &RegisterResult{Member: m, Session: session}, nil, nil
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Member  *member.Member
	Session *Session

	// RememberToken is the persistent token to set client-side, empty
	// unless rememberMe was requested.
	RememberToken string

	// ClearRemember instructs the caller to drop any stored persistent
	// token, so a non-remembered login does not extend old persistence.
	ClearRemember bool
}

// Login authenticates a member. Both the unknown-email and
// wrong-password branches fail with InvalidCredentialsMessage; only the
// field the message is attributed to differs.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, member.FieldErrors, error) {
	if fieldErrs := s.validator.ValidateLogin(email, password); fieldErrs.Any() {
		return nil, fieldErrs, nil
	}
	email = member.SanitizeEmail(email)

	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			// Burn a hash computation anyway so the two failure
			// branches take comparable time.
			s.hasher.Verify(password, dummyPasswordHash)
			return nil, member.FieldErrors{"email": InvalidCredentialsMessage}, nil
		}
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get member by email").
			Wrap(err)
	}

	if !s.hasher.Verify(password, m.PasswordHash) {
		return nil, member.FieldErrors{"password": InvalidCredentialsMessage}, nil
	}

	session, err := s.sessions.Establish(m.ID, m.Email)
	if err != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "establish session").
			Wrap(err)
	}

	result := &LoginResult{Member: m, Session: session}
	if rememberMe {
		result.RememberToken = s.tokens.Issue(m.ID, m.Email)
	} else {
		result.ClearRemember = true
	}

	s.logger.InfoContext(ctx, "member logged in",
		slog.Int64("member_id", m.ID),
		slog.Bool("remember_me", rememberMe))

	return result, nil, nil
}

// Logout destroys the session. No authorization check: the worst a
// forged call can do is sign someone out. The caller is responsible for
// clearing the persistent-token cookie.
func (s *Service) Logout(sessionID string) {
	s.sessions.Destroy(sessionID)
}

// CurrentSession returns the active session for the ID, or nil.
func (s *Service) CurrentSession(sessionID string) *Session {
	return s.sessions.Get(sessionID)
}

// RestoreFromToken re-establishes a session from a persistent token.
// Returns nil with no error when the token does not verify (member gone,
// email changed, token tampered): verification fails closed and the
// caller clears the stored token.
func (s *Service) RestoreFromToken(ctx context.Context, memberID int64, token string) (*Session, error) {
	ok, err := s.tokens.Verify(ctx, memberID, token)
	if err != nil {
		errutil.LogError(s.logger, "persistent token verification errored", err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_RESTORE_FAILED").
			With("operation", "get member by id").
			With("member_id", memberID).
			Wrap(err)
	}

	session, err := s.sessions.Establish(m.ID, m.Email)
	if err != nil {
		return nil, oops.Code("AUTH_RESTORE_FAILED").
			With("operation", "establish session").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session restored from persistent token",
		slog.Int64("member_id", m.ID))

	return session, nil
}
