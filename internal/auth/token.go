// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/selfreg/selfreg/internal/member"
)

// RememberTokenBytes is the length of a persistent-login token digest.
const RememberTokenBytes = sha256.Size

// TokenIssuer derives and verifies persistent-login tokens. A token is a
// deterministic keyed hash over (memberID, email, server secret): no
// server-side token state exists, verification is pure recomputation.
// Changing a member's email therefore silently invalidates every token
// previously issued for them, which is intentional.
type TokenIssuer struct {
	secret  []byte
	members member.Repository
}

// NewTokenIssuer creates a TokenIssuer. The secret must be non-empty;
// rotating it invalidates all outstanding tokens at once.
func NewTokenIssuer(secret []byte, members member.Repository) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_ISSUER_INIT_FAILED").Errorf("server secret is required")
	}
	if members == nil {
		return nil, oops.Code("TOKEN_ISSUER_INIT_FAILED").Errorf("member repository is required")
	}
	return &TokenIssuer{secret: secret, members: members}, nil
}

// Issue derives the persistent token for a member. Same inputs always
// yield the same token.
func (t *TokenIssuer) Issue(memberID int64, email string) string {
	mac := hmac.New(sha256.New, t.secret)
	fmt.Fprintf(mac, "%d\x00%s", memberID, email)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected token from the member's current email
// and compares in constant time. A deleted member, a changed email, or a
// tampered token all verify as false; only a store failure is an error.
func (t *TokenIssuer) Verify(ctx context.Context, memberID int64, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	m, err := t.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return false, nil
		}
		return false, oops.Code("TOKEN_VERIFY_FAILED").
			With("operation", "get member by id").
			With("member_id", memberID).
			Wrap(err)
	}

	expected := t.Issue(m.ID, m.Email)
	return hmac.Equal([]byte(expected), []byte(token)), nil
}
