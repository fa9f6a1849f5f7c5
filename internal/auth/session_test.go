// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/selfreg/selfreg/internal/auth"
)

func TestSessionManager_EstablishAndGet(t *testing.T) {
	sm := auth.NewSessionManager(time.Hour)

	session, err := sm.Establish(1, "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	assert.Len(t, session.ID, auth.SessionIDBytes*2) // hex-encoded
	assert.Equal(t, int64(1), session.MemberID)
	assert.Equal(t, "ada@example.com", session.Email)

	got := sm.Get(session.ID)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
}

func TestSessionManager_IDsAreUnique(t *testing.T) {
	sm := auth.NewSessionManager(time.Hour)

	seen := make(map[string]bool)
	for range 100 {
		session, err := sm.Establish(1, "ada@example.com")
		require.NoError(t, err)
		require.False(t, seen[session.ID], "duplicate session ID")
		seen[session.ID] = true
	}
}

func TestSessionManager_GetUnknownOrEmpty(t *testing.T) {
	sm := auth.NewSessionManager(time.Hour)
	assert.Nil(t, sm.Get("unknown"))
	assert.Nil(t, sm.Get(""))
}

func TestSessionManager_ExpiredSessionRemovedOnGet(t *testing.T) {
	sm := auth.NewSessionManager(time.Nanosecond)

	session, err := sm.Establish(1, "ada@example.com")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	assert.Nil(t, sm.Get(session.ID))
	assert.Equal(t, 0, sm.Len())
}

func TestSessionManager_Destroy(t *testing.T) {
	sm := auth.NewSessionManager(time.Hour)

	session, err := sm.Establish(1, "ada@example.com")
	require.NoError(t, err)

	sm.Destroy(session.ID)
	assert.Nil(t, sm.Get(session.ID))

	// Destroying again is a no-op.
	sm.Destroy(session.ID)
}

func TestSessionManager_Sweep(t *testing.T) {
	sm := auth.NewSessionManager(time.Nanosecond)

	for range 3 {
		_, err := sm.Establish(1, "ada@example.com")
		require.NoError(t, err)
	}
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 3, sm.Sweep())
	assert.Equal(t, 0, sm.Len())
	assert.Equal(t, 0, sm.Sweep())
}

func TestSessionManager_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sm := auth.NewSessionManager(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sm.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestNewSessionManager_DefaultTTL(t *testing.T) {
	sm := auth.NewSessionManager(0)

	session, err := sm.Establish(1, "ada@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultSessionTTL), session.ExpiresAt, time.Minute)
}
