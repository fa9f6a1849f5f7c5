// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionIDBytes    = 32             // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // idle sessions older than this are dropped

	sweepInterval = 5 * time.Minute
)

// Session is the ephemeral authenticated context for one browser. It
// lives only in process memory; a restart logs everyone out, after which
// persistent tokens re-establish identity.
type Session struct {
	ID        string
	MemberID  int64
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionManager holds active sessions keyed by random session ID.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionManager creates a SessionManager. A non-positive ttl falls
// back to DefaultSessionTTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Establish creates a session for the member and returns it.
func (sm *SessionManager) Establish(memberID int64, email string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:        id,
		MemberID:  memberID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}

	sm.mu.Lock()
	sm.sessions[id] = session
	sm.mu.Unlock()
	return session, nil
}

// Get returns the session for the given ID, or nil if it is unknown or
// expired. Expired sessions are removed on sight.
func (sm *SessionManager) Get(id string) *Session {
	if id == "" {
		return nil
	}

	sm.mu.RLock()
	session, ok := sm.sessions[id]
	sm.mu.RUnlock()
	if !ok {
		return nil
	}
	if session.IsExpired() {
		sm.Destroy(id)
		return nil
	}
	return session
}

// Destroy removes a session. Destroying an unknown ID is a no-op.
func (sm *SessionManager) Destroy(id string) {
	sm.mu.Lock()
	delete(sm.sessions, id)
	sm.mu.Unlock()
}

// Len returns the number of tracked sessions, expired ones included.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (sm *SessionManager) Sweep() int {
	now := time.Now()
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var dropped int
	for id, session := range sm.sessions {
		if now.After(session.ExpiresAt) {
			delete(sm.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps expired sessions periodically until ctx is cancelled.
func (sm *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.Sweep()
		}
	}
}

// generateSessionID creates a secure random session identifier.
func generateSessionID() (string, error) {
	raw := make([]byte, SessionIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionIDBytes).
			Wrap(err)
	}
	return hex.EncodeToString(raw), nil
}
