// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package auth provides credential handling and the session/identity
// lifecycle for member accounts.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters, per current OWASP guidance.
const (
	argonIterations  = 1
	argonMemoryKiB   = 64 * 1024
	argonParallelism = 4
	argonSaltBytes   = 16
	argonKeyBytes    = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted, irreversible hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the hash. A malformed
	// or unsupported hash verifies as false, never as an error.
	Verify(password, hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id in PHC string
// format.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password with a fresh random salt.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argonSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argonIterations, argonMemoryKiB, argonParallelism, argonKeyBytes)

	// PHC string: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether the password matches the encoded hash. Any
// parse failure counts as a mismatch so stored garbage cannot turn a
// login attempt into a crash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	params, ok := parsePHC(encodedHash)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(password), params.salt, params.iterations, params.memory, params.parallelism, uint32(len(params.key)))
	return subtle.ConstantTimeCompare(computed, params.key) == 1
}

type phcParams struct {
	salt        []byte
	key         []byte
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// parsePHC decodes an argon2id PHC string into its verification inputs.
func parsePHC(encoded string) (phcParams, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return phcParams{}, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phcParams{}, false
	}

	var memory, iterations, parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return phcParams{}, false
	}
	if parallelism == 0 || parallelism > 255 {
		return phcParams{}, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return phcParams{}, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return phcParams{}, false
	}

	return phcParams{
		salt:        salt,
		key:         key,
		memory:      memory,
		iterations:  iterations,
		parallelism: uint8(parallelism),
	}, true
}

// Compile-time interface check.
var _ PasswordHasher = (*Argon2idHasher)(nil)
