// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/selfreg/selfreg/internal/auth"
	"github.com/selfreg/selfreg/internal/blob"
	"github.com/selfreg/selfreg/internal/member"
	"github.com/selfreg/selfreg/internal/observability"
	"github.com/selfreg/selfreg/pkg/errutil"
)

// handleFormToken issues an anti-forgery token for a form action.
func (s *Server) handleFormToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.formTokens.Issue(r.URL.Query().Get("action"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Unknown form action.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// registerRequest mirrors the registration form.
type registerRequest struct {
	FullName        string   `json:"fullName"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirmPassword"`
	PhoneNumber     string   `json:"phoneNumber"`
	Country         string   `json:"country"`
	City            string   `json:"city"`
	Gender          string   `json:"gender"`
	DateOfBirth     string   `json:"dateOfBirth"`
	Interests       []string `json:"interests"`
	PhotoRef        string   `json:"photoRef"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := &member.RegistrationInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		PhoneNumber:     req.PhoneNumber,
		Country:         req.Country,
		City:            req.City,
		Gender:          req.Gender,
		DateOfBirth:     req.DateOfBirth,
		Interests:       req.Interests,
		PhotoRef:        req.PhotoRef,
	}

	result, fieldErrs, err := s.auth.Register(r.Context(), in)
	if err != nil {
		errutil.LogError(s.logger, "registration failed", err)
		s.countRegistration(observability.OutcomeError)
		respondInternal(w)
		return
	}
	if fieldErrs.Any() {
		s.countRegistration(observability.OutcomeValidationFailed)
		respondFieldErrors(w, fieldErrs)
		return
	}

	s.countRegistration(observability.OutcomeOK)
	setSessionCookie(w, result.Session)
	respondJSON(w, http.StatusCreated, map[string]any{
		"member": memberView(result.Member),
	})
}

// loginRequest mirrors the login form.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, fieldErrs, err := s.auth.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		errutil.LogError(s.logger, "login failed", err)
		s.countLogin(observability.OutcomeError)
		respondInternal(w)
		return
	}
	if fieldErrs.Any() {
		s.countLogin(observability.OutcomeInvalidCredentials)
		respondFieldErrors(w, fieldErrs)
		return
	}

	setSessionCookie(w, result.Session)
	if result.RememberToken != "" {
		setRememberCookie(w, result.Member.ID, result.RememberToken, s.rememberFor)
	} else if result.ClearRemember {
		clearRememberCookie(w)
	}

	s.countLogin(observability.OutcomeOK)
	respondJSON(w, http.StatusOK, map[string]any{
		"member": memberView(result.Member),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		s.auth.Logout(c.Value)
	}
	clearSessionCookie(w)
	clearRememberCookie(w)
	respondJSON(w, http.StatusNoContent, nil)
}

// handleSession reports the current identity, restoring it from the
// persistent token when the session cookie is gone but a valid remember
// cookie survives. An invalid remember cookie is cleared on sight.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if session := s.currentSession(r); session != nil {
		respondJSON(w, http.StatusOK, sessionView(session))
		return
	}

	memberID, token, ok := parseRememberCookie(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorEnvelope{Message: "Not signed in."})
		return
	}

	session, err := s.auth.RestoreFromToken(r.Context(), memberID, token)
	if err != nil {
		errutil.LogError(s.logger, "session restore failed", err)
		respondInternal(w)
		return
	}
	if session == nil {
		clearRememberCookie(w)
		respondJSON(w, http.StatusUnauthorized, errorEnvelope{Message: "Not signed in."})
		return
	}

	setSessionCookie(w, session)
	respondJSON(w, http.StatusOK, sessionView(session))
}

// handleEmailExists backs the live availability hint on the signup form.
// Advisory only: registration re-checks authoritatively.
func (s *Server) handleEmailExists(w http.ResponseWriter, r *http.Request) {
	email := member.SanitizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		respondMessage(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	exists, err := s.members.ExistsByEmail(r.Context(), email)
	if err != nil {
		errutil.LogError(s.logger, "email existence check failed", err)
		respondInternal(w)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) handleMemberList(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r) == nil {
		respondJSON(w, http.StatusUnauthorized, errorEnvelope{Message: "Sign in to view members."})
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	offset := (page - 1) * s.pageSize
	members, err := s.members.List(r.Context(), s.pageSize, offset)
	if err != nil {
		errutil.LogError(s.logger, "member list failed", err)
		respondInternal(w)
		return
	}
	total, err := s.members.Count(r.Context())
	if err != nil {
		errutil.LogError(s.logger, "member count failed", err)
		respondInternal(w)
		return
	}

	views := make([]memberJSON, 0, len(members))
	for _, m := range members {
		views = append(views, memberView(m))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"members":   views,
		"page":      page,
		"pageSize":  s.pageSize,
		"total":     total,
		"pageCount": member.PageCount(total, s.pageSize),
	})
}

// deleteRequest carries the IDs to bulk-delete.
type deleteRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleMemberDelete(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r) == nil {
		respondJSON(w, http.StatusUnauthorized, errorEnvelope{Message: "Sign in to manage members."})
		return
	}

	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deleted, err := s.members.DeleteByIDs(r.Context(), req.IDs)
	if err != nil {
		errutil.LogError(s.logger, "member delete failed", err)
		respondInternal(w)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// handlePhotoUpload stores the profile photo ahead of registration and
// returns the reference the register call will carry.
func (s *Server) handlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		s.countPhotoUpload(observability.OutcomeValidationFailed)
		respondMessage(w, http.StatusBadRequest, "A photo file is required.")
		return
	}
	defer file.Close() //nolint:errcheck // read-only temp file

	data, err := io.ReadAll(file)
	if err != nil {
		s.countPhotoUpload(observability.OutcomeError)
		respondMessage(w, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}

	ref, err := s.photos.Store(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, blob.ErrTooLarge):
			s.countPhotoUpload(observability.OutcomeValidationFailed)
			respondMessage(w, http.StatusRequestEntityTooLarge, "Photo must be 5 MB or smaller.")
		case errors.Is(err, blob.ErrBadType):
			s.countPhotoUpload(observability.OutcomeValidationFailed)
			respondMessage(w, http.StatusUnsupportedMediaType, "Photo must be a JPEG, PNG, or GIF image.")
		default:
			errutil.LogError(s.logger, "photo upload failed", err)
			s.countPhotoUpload(observability.OutcomeError)
			respondInternal(w)
		}
		return
	}

	s.countPhotoUpload(observability.OutcomeOK)
	respondJSON(w, http.StatusCreated, map[string]string{"photoRef": ref})
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countPhotoUpload(outcome string) {
	if s.metrics != nil {
		s.metrics.PhotoUploadsTotal.WithLabelValues(outcome).Inc()
	}
}

// memberJSON is the wire shape of a member. The password hash never
// leaves the server.
type memberJSON struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Country     string    `json:"country"`
	City        *string   `json:"city,omitempty"`
	Gender      *string   `json:"gender,omitempty"`
	DateOfBirth *string   `json:"dateOfBirth,omitempty"`
	Interests   []string  `json:"interests"`
	PhotoRef    *string   `json:"photoRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func memberView(m *member.Member) memberJSON {
	interests := m.Interests
	if interests == nil {
		interests = []string{}
	}
	return memberJSON{
		ID:          m.ID,
		FullName:    m.FullName,
		Email:       m.Email,
		PhoneNumber: m.PhoneNumber,
		Country:     m.Country,
		City:        m.City,
		Gender:      m.Gender,
		DateOfBirth: m.DateOfBirth,
		Interests:   interests,
		PhotoRef:    m.PhotoRef,
		CreatedAt:   m.CreatedAt,
	}
}

type sessionJSON struct {
	MemberID  int64     `json:"memberId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionView(s *auth.Session) sessionJSON {
	return sessionJSON{
		MemberID:  s.MemberID,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt,
	}
}
