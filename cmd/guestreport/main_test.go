package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"guestreport_client/internal/app/apptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points the CLI at a fresh dev backend with file-backed tabs.
func setupCLI(t *testing.T) {
	t.Helper()
	srv := apptest.NewBackend(t, apptest.Config("cli-test-secret"))
	t.Setenv("API_BASE_URL", srv.URL+"/api")
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("SESSION_DIR", t.TempDir())
	t.Setenv("SESSION_SCOPE", "")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	env := &cliEnv{}
	cmd := newRootCmd(env)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := execute(cmd, env)
	return out.String(), err
}

func registerAndLogin(t *testing.T, scope string) {
	t.Helper()
	_, err := runCLI(t, "register", "--email", "cli@example.com", "--password", "pass1234",
		"--confirm-password", "pass1234", "--agree-terms")
	require.NoError(t, err)
	out, err := runCLI(t, "--scope", scope, "login", "--email", "cli@example.com", "--password", "pass1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as cli")
}

func TestCLI_SessionPersistsAcrossInvocations(t *testing.T) {
	setupCLI(t)
	registerAndLogin(t, "tab-1")

	out, err := runCLI(t, "--scope", "tab-1", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "authenticated as cli@example.com")

	out, err = runCLI(t, "--scope", "tab-1", "whoami", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "<cli@example.com>")

	// Another tab scope has no session.
	out, err = runCLI(t, "--scope", "tab-2", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "anonymous")

	_, err = runCLI(t, "--scope", "tab-1", "logout")
	require.NoError(t, err)
	out, err = runCLI(t, "--scope", "tab-1", "--json", "status")
	require.NoError(t, err)
	var v statusView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "anonymous", v.State)
	assert.Equal(t, "tab-1", v.Scope)
}

func TestCLI_TabReloadKeepsAndCloseEndsSession(t *testing.T) {
	setupCLI(t)
	registerAndLogin(t, "tab-r")

	out, err := runCLI(t, "--scope", "tab-r", "tab", "reload")
	require.NoError(t, err)
	assert.Contains(t, out, "authenticated")

	out, err = runCLI(t, "--scope", "tab-r", "tab", "close")
	require.NoError(t, err)
	assert.Contains(t, out, "closed")

	out, err = runCLI(t, "--scope", "tab-r", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "anonymous")
}

func TestCLI_LoginFailureShowsServerMessage(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "login", "--email", "ghost@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password.", err.Error())
}

func TestCLI_RegisterValidation(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "register", "--email", "x@example.com", "--password", "pass1234",
		"--confirm-password", "different", "--agree-terms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
}

func TestCLI_Locations(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "locations", "countries")
	require.NoError(t, err)
	assert.Contains(t, out, "\tCanada\n")
	assert.Contains(t, out, "\tUSA\n")

	out, err = runCLI(t, "--json", "locations", "prefill", "--country", "USA", "--state", "Washington", "--city", "Seattle")
	require.NoError(t, err)
	var sel struct {
		CountryID *int `json:"countryId"`
		StateID   *int `json:"stateId"`
		CityID    *int `json:"cityId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sel))
	require.NotNil(t, sel.CityID)

	out, err = runCLI(t, "locations", "states", "abc")
	require.Error(t, err)
	assert.Empty(t, out)

	out, err = runCLI(t, "--json", "locations", "tree")
	require.NoError(t, err)
	var tree []countryNode
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	require.Len(t, tree, 2)
	assert.Equal(t, "Canada", tree[0].Name)
	require.Len(t, tree[1].States, 3)
	assert.Equal(t, "Seattle", tree[1].States[2].Cities[0].Name)
}

func TestCLI_GoogleLoginNeedsAnInput(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "google-login")
	require.Error(t, err)

	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	out, err := runCLI(t, "google-login", "--auth-url")
	require.NoError(t, err)
	assert.Contains(t, out, "accounts.google.com")
	assert.Contains(t, out, "client_id=cid")
}

func TestCLI_EditProfile(t *testing.T) {
	setupCLI(t)
	registerAndLogin(t, "tab-edit")

	out, err := runCLI(t, "--scope", "tab-edit", "edit-profile", "--bio", "Visiting parent")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated: cli")

	out, err = runCLI(t, "--scope", "tab-edit", "edit-profile", "--bio", "Visiting parent")
	require.NoError(t, err)
	assert.Contains(t, out, "No profile changes were made.")

	out, err = runCLI(t, "--scope", "tab-edit", "edit-profile", "--username", "Casey")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated: Casey")

	out, err = runCLI(t, "--scope", "tab-edit", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Casey <cli@example.com>")

	_, err = runCLI(t, "--scope", "tab-edit", "edit-profile", "--username", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Username cannot be empty.")
}

func TestCLI_FailedCommandStillReleasesResources(t *testing.T) {
	setupCLI(t)
	env := &cliEnv{}
	var released int
	env.closers = append(env.closers, func() { released++ })

	cmd := newRootCmd(env)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"locations", "states", "abc"})

	require.Error(t, execute(cmd, env))
	assert.Equal(t, 1, released)
	assert.Empty(t, env.closers)
}
