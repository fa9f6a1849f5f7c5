// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package member

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^[0-9+\-()\s]+$`)

	// tagRegex matches anything that looks like markup. Sanitization
	// strips it outright rather than escaping; stored values are plain
	// text.
	tagRegex     = regexp.MustCompile(`<[^>]*>?`)
	controlRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// FieldErrors maps a field name to its validation message. Empty means
// validation passed.
type FieldErrors map[string]string

// Add records a message for a field, keeping the first message per field.
func (fe FieldErrors) Add(field, message string) {
	if _, ok := fe[field]; !ok {
		fe[field] = message
	}
}

// Any reports whether any field failed.
func (fe FieldErrors) Any() bool { return len(fe) > 0 }

// RegistrationInput carries the raw registration form fields. Validate
// sanitizes in place, so on success the struct holds the values safe to
// hash and persist.
type RegistrationInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
	PhoneNumber     string
	Country         string
	City            string
	Gender          string
	DateOfBirth     string
	Interests       []string
	PhotoRef        string
}

// Validator is the single source of truth for field acceptability. Every
// registration and login attempt passes through it regardless of any
// client-side checks, which carry zero trust.
type Validator struct {
	members Repository
}

// NewValidator creates a Validator backed by the given repository for
// email existence checks.
func NewValidator(members Repository) (*Validator, error) {
	if members == nil {
		return nil, oops.Code("VALIDATOR_INIT_FAILED").Errorf("member repository is required")
	}
	return &Validator{members: members}, nil
}

// ValidateRegistration sanitizes the input and evaluates every
// registration rule, collecting all violations instead of stopping at the
// first. The returned error is non-nil only when the email existence
// check itself failed against the store.
func (v *Validator) ValidateRegistration(ctx context.Context, in *RegistrationInput) (FieldErrors, error) {
	sanitizeRegistration(in)
	fe := FieldErrors{}

	if in.FullName == "" {
		fe.Add("fullName", "Full name is required.")
	}
	switch {
	case in.Email == "":
		fe.Add("email", "Email is required.")
	case !emailRegex.MatchString(in.Email):
		fe.Add("email", "Email address is not valid.")
	default:
		exists, err := v.members.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, oops.Code("VALIDATE_EMAIL_CHECK_FAILED").
				With("operation", "check email exists").
				Wrap(err)
		}
		if exists {
			fe.Add("email", "This email is already registered.")
		}
	}
	switch {
	case in.Password == "":
		fe.Add("password", "Password is required.")
	case len(in.Password) < MinPasswordLength:
		fe.Add("password", fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	if in.ConfirmPassword != in.Password {
		fe.Add("confirmPassword", "Passwords do not match.")
	}
	switch {
	case in.PhoneNumber == "":
		fe.Add("phoneNumber", "Phone number is required.")
	case !phoneRegex.MatchString(in.PhoneNumber):
		fe.Add("phoneNumber", "Phone number may contain only digits, spaces, and + - ( ).")
	}
	if in.Country == "" {
		fe.Add("country", "Country is required.")
	}
	if len(in.Interests) == 0 {
		fe.Add("interests", "Select at least one interest.")
	}
	if in.PhotoRef == "" {
		fe.Add("profilePhoto", "A profile photo must be uploaded first.")
	}

	return fe, nil
}

// ValidateLogin checks presence only. Format and existence checks are
// deliberately deferred so login failures collapse into one generic
// message.
func (v *Validator) ValidateLogin(email, password string) FieldErrors {
	fe := FieldErrors{}
	if SanitizeEmail(email) == "" {
		fe.Add("email", "Email is required.")
	}
	if password == "" {
		fe.Add("password", "Password is required.")
	}
	return fe
}

func sanitizeRegistration(in *RegistrationInput) {
	in.FullName = SanitizeText(in.FullName)
	in.Email = SanitizeEmail(in.Email)
	in.PhoneNumber = SanitizeText(in.PhoneNumber)
	in.Country = SanitizeText(in.Country)
	in.City = SanitizeText(in.City)
	in.Gender = SanitizeText(in.Gender)
	in.DateOfBirth = SanitizeText(in.DateOfBirth)
	in.PhotoRef = strings.TrimSpace(in.PhotoRef)

	interests := in.Interests[:0]
	for _, tag := range in.Interests {
		if tag = SanitizeText(tag); tag != "" {
			interests = append(interests, tag)
		}
	}
	in.Interests = interests
	// Passwords are never sanitized: any byte sequence is legal and the
	// hash consumes them verbatim.
}

// SanitizeText trims whitespace and strips markup and control characters
// from a free-text field.
func SanitizeText(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = controlRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// SanitizeEmail normalizes an email for storage and comparison:
// sanitized as text, then lowercased.
func SanitizeEmail(s string) string {
	return strings.ToLower(SanitizeText(s))
}

// Optional converts a sanitized form value to its stored representation:
// nil for "not provided" rather than the empty string.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
