// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/selfreg/selfreg/internal/auth"
)

const (
	sessionCookieName  = "selfreg_session"
	rememberCookieName = "selfreg_remember"
)

func setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// setRememberCookie stores the persistent token as "memberID:token".
// The member ID rides along because verification needs it to look the
// member up and recompute the expected token.
func setRememberCookie(w http.ResponseWriter, memberID int64, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookieName,
		Value:    strconv.FormatInt(memberID, 10) + ":" + token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRememberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// parseRememberCookie extracts (memberID, token) from the remember
// cookie. Returns ok=false when the cookie is absent or malformed.
func parseRememberCookie(r *http.Request) (int64, string, bool) {
	c, err := r.Cookie(rememberCookieName)
	if err != nil {
		return 0, "", false
	}
	idPart, token, found := strings.Cut(c.Value, ":")
	if !found || token == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, token, true
}

// currentSession resolves the session cookie to an active session, or nil.
func (s *Server) currentSession(r *http.Request) *auth.Session {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	return s.auth.CurrentSession(c.Value)
}
