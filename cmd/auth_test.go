package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCommand(t *testing.T) {
	assert.Equal(t, "auth", authCmd.Use)
	assert.NotEmpty(t, authCmd.Short)
	assert.NotNil(t, authCmd.RunE)
}

func TestOutputAuthStatus(t *testing.T) {
	tests := []struct {
		name           string
		status         AuthStatus
		jsonMode       bool
		expectError    bool
		expectContains []string
	}{
		{
			name:           "authenticated user plain text",
			status:         AuthStatus{Authenticated: true, User: "testuser", Remaining: "requests remaining: 4999/5000"},
			expectContains: []string{"✓", "testuser", "requests remaining: 4999/5000"},
		},
		{
			name:           "authenticated user JSON",
			status:         AuthStatus{Authenticated: true, User: "testuser"},
			jsonMode:       true,
			expectContains: []string{`"authenticated": true`, `"user": "testuser"`},
		},
		{
			name:           "not authenticated plain text",
			status:         AuthStatus{Error: "auth failed"},
			expectError:    true,
			expectContains: []string{"✗", "Not authenticated", "Error: auth failed", "gh auth login"},
		},
		{
			name:           "not authenticated JSON",
			status:         AuthStatus{Error: "auth failed"},
			jsonMode:       true,
			expectError:    true,
			expectContains: []string{`"authenticated": false`, `"error": "auth failed"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalJSON := jsonOut
			jsonOut = tt.jsonMode
			defer func() { jsonOut = originalJSON }()

			var buf bytes.Buffer
			err := outputAuthStatus(&buf, tt.status)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "not authenticated")
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.expectContains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestAuthCommandWithFakeGitHub(t *testing.T) {
	w := newWorkspace(t)
	w.github.on("GET", "/user", `{"login": "octocat"}`)

	stdout, _, err := w.run("auth")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Authenticated as octocat")
}

func TestVersionCommand(t *testing.T) {
	w := newWorkspace(t)

	stdout, _, err := w.run("version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "gh-backport version")

	stdout, _, err = w.run("version", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"program": "gh-backport"`)
}
