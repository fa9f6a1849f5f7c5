// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Form actions that carry anti-forgery tokens.
const (
	ActionRegister     = "register"
	ActionLogin        = "login"
	ActionPhoto        = "photo"
	ActionMemberDelete = "member-delete"
)

// FormTokenHeader carries the anti-forgery token on POST requests.
const FormTokenHeader = "X-Form-Token"

// formTokenMaxAge bounds how long an issued token stays valid.
const formTokenMaxAge = time.Hour

var knownActions = map[string]struct{}{
	ActionRegister:     {},
	ActionLogin:        {},
	ActionPhoto:        {},
	ActionMemberDelete: {},
}

// FormTokens issues and verifies per-action anti-forgery tokens. A token
// is a ULID nonce plus an HMAC binding the nonce to its action, so a
// token minted for one form cannot replay against another. The ULID's
// embedded timestamp bounds token age without server-side state.
type FormTokens struct {
	secret []byte
}

// NewFormTokens creates a FormTokens issuer keyed with the given secret.
func NewFormTokens(secret []byte) (*FormTokens, error) {
	if len(secret) == 0 {
		return nil, oops.Code("FORM_TOKEN_INIT_FAILED").Errorf("secret is required")
	}
	return &FormTokens{secret: secret}, nil
}

// Issue mints a token for the action.
func (f *FormTokens) Issue(action string) (string, error) {
	if _, ok := knownActions[action]; !ok {
		return "", oops.Code("FORM_TOKEN_UNKNOWN_ACTION").
			With("action", action).
			Errorf("unknown form action")
	}
	nonce := ulid.Make().String()
	return nonce + "." + f.sign(action, nonce), nil
}

// Verify reports whether the token is valid for the action: well-formed,
// correctly signed, and not older than an hour.
func (f *FormTokens) Verify(action, token string) bool {
	nonce, mac, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	id, err := ulid.Parse(nonce)
	if err != nil {
		return false
	}
	if time.Since(ulid.Time(id.Time())) > formTokenMaxAge {
		return false
	}
	return hmac.Equal([]byte(mac), []byte(f.sign(action, nonce)))
}

func (f *FormTokens) sign(action, nonce string) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(action))
	mac.Write([]byte{0})
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// requireFormToken rejects the request unless it carries a valid token
// for the action, in the X-Form-Token header or a _token form field.
func (s *Server) requireFormToken(action string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(FormTokenHeader)
		if token == "" {
			token = r.FormValue("_token")
		}
		if !s.formTokens.Verify(action, token) {
			respondMessage(w, http.StatusForbidden, "Form token is missing or expired. Reload the page and try again.")
			return
		}
		next(w, r)
	})
}
