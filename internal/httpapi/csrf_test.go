// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package httpapi_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfreg/selfreg/internal/httpapi"
)

func TestNewFormTokens_RequiresSecret(t *testing.T) {
	_, err := httpapi.NewFormTokens(nil)
	require.Error(t, err)
}

func TestFormTokens_IssueAndVerify(t *testing.T) {
	ft, err := httpapi.NewFormTokens([]byte("secret"))
	require.NoError(t, err)

	token, err := ft.Issue(httpapi.ActionRegister)
	require.NoError(t, err)
	assert.True(t, ft.Verify(httpapi.ActionRegister, token))
}

func TestFormTokens_UnknownAction(t *testing.T) {
	ft, err := httpapi.NewFormTokens([]byte("secret"))
	require.NoError(t, err)

	_, err = ft.Issue("drop-tables")
	require.Error(t, err)
}

func TestFormTokens_RejectsInvalidTokens(t *testing.T) {
	ft, err := httpapi.NewFormTokens([]byte("secret"))
	require.NoError(t, err)

	valid, err := ft.Issue(httpapi.ActionLogin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		action string
		token  string
	}{
		{name: "empty token", action: httpapi.ActionLogin, token: ""},
		{name: "no separator", action: httpapi.ActionLogin, token: "garbage"},
		{name: "bad nonce", action: httpapi.ActionLogin, token: "not-a-ulid." + strings.Repeat("0", 64)},
		{name: "tampered mac", action: httpapi.ActionLogin, token: valid[:len(valid)-1] + "0"},
		{name: "wrong action", action: httpapi.ActionRegister, token: valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ft.Verify(tt.action, tt.token))
		})
	}
}

func TestFormTokens_DifferentSecretsDisagree(t *testing.T) {
	a, err := httpapi.NewFormTokens([]byte("secret-a"))
	require.NoError(t, err)
	b, err := httpapi.NewFormTokens([]byte("secret-b"))
	require.NoError(t, err)

	token, err := a.Issue(httpapi.ActionPhoto)
	require.NoError(t, err)
	assert.False(t, b.Verify(httpapi.ActionPhoto, token))
}
