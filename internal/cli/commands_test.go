package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webform-store/internal/webform"
)

type cliEnv struct {
	t   *testing.T
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	return &cliEnv{t: t, dir: t.TempDir()}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := RootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args,
		"--config-dir", e.dir,
		"--pool", "forms",
		"--driver", "sqlite",
		"--dsn", filepath.Join(e.dir, "forms.db"),
		"--log-level", "error",
	))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "webform %s", strings.Join(args, " "))
	return out
}

func TestCommands_EndToEnd(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "absent\n", env.mustRun("schema"))
	assert.Equal(t, "Tables created.\n", env.mustRun("init-db"))
	assert.Equal(t, "Tables are up to date.\n", env.mustRun("init-db"))
	assert.Equal(t, "current\n", env.mustRun("schema"))

	var stored submitResult
	out := env.mustRun("submit", "--form", "contact", "--field", "email=ada@example.com", "--field", "topic=billing", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.Equal(t, int64(1), stored.EntryID)
	assert.Equal(t, 2, stored.Written)
	assert.Equal(t, webform.NullResourceID().String(), stored.ResourceID)

	assert.Contains(t, env.mustRun("submit", "--form", "survey"), "Stored submission 2")

	out = env.mustRun("count")
	assert.Contains(t, out, "contact")
	assert.Contains(t, out, "survey")

	assert.JSONEq(t, `{"count": 1}`, env.mustRun("count", "--form", "contact", "--json"))

	var subs []webform.Submission
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("list", "--form", "contact", "--json")), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"ada@example.com"}, subs[0].Values("email"))

	assert.Contains(t, env.mustRun("get", "1"), "email = ada@example.com")

	env.mustRun("set-state", "1", "3")
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("list", "--state", "3", "--headers", "--json")), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, 3, subs[0].State)
	assert.Empty(t, subs[0].Fields)

	env.mustRun("set-field", "1", "email", "new@example.com")
	env.mustRun("set-field", "1", "topic")
	var sub webform.Submission
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("get", "1", "--json")), &sub))
	assert.Equal(t, []webform.FieldValue{{Name: "email", Value: "new@example.com"}}, sub.Fields)

	assert.Equal(t, "email\n", env.mustRun("field-names", "--form", "contact"))

	assert.Contains(t, env.mustRun("delete", "1"), "Deleted submission 1")
	_, err := env.run("get", "1")
	assert.ErrorIs(t, err, webform.ErrNotFound)

	assert.JSONEq(t, `[]`, env.mustRun("list", "--form", "contact", "--json"))
}

func TestCommands_ArgumentErrors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("get", "abc")
	assert.ErrorContains(t, err, "invalid entry id")

	_, err = env.run("set-state", "1", "high")
	assert.ErrorContains(t, err, "invalid state")

	_, err = env.run("submit", "--form", "contact", "--field", "broken")
	assert.ErrorContains(t, err, "expected name=value")

	_, err = env.run("submit")
	assert.Error(t, err)

	_, err = env.run("list", "--from", "5", "--to", "1")
	assert.ErrorIs(t, err, webform.ErrInvalidWindow)
}

func TestConfigCommand_MasksDSN(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("config")
	assert.Contains(t, out, "db-pool = forms")
	assert.Contains(t, out, "driver = sqlite")
	assert.NotContains(t, out, filepath.Join(env.dir, "forms.db"))
}
