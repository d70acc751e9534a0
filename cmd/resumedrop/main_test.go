package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ResumeDrop/internal/auth"
	"github.com/dharsanguruparan/ResumeDrop/internal/testutil"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRedactReadsStdin(t *testing.T) {
	out, err := execute(t, "Mail jane.doe@example.com today", "redact")
	require.NoError(t, err)
	assert.Equal(t, "Mail [EMAIL_REMOVED] today\n", out)
}

func TestParsePrintsText(t *testing.T) {
	path := writeTemp(t, "cv.docx", testutil.DOCX([]string{"Jane Doe", "jane@example.com"}))

	out, err := execute(t, "", "parse", path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\njane@example.com\n", out)

	out, err = execute(t, "", "parse", "--remove-pii", "--json", path)
	require.NoError(t, err)
	var doc struct {
		Text       string `json:"text"`
		Format     string `json:"format"`
		PIIRemoved bool   `json:"pii_removed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "docx", doc.Format)
	assert.True(t, doc.PIIRemoved)
	assert.NotContains(t, doc.Text, "jane@example.com")
}

func TestParseRefusesFileOutsideRoot(t *testing.T) {
	path := writeTemp(t, "cv.pdf", testutil.PDF("Go developer"))
	_, err := execute(t, "", "parse", "--root", t.TempDir(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid file path")
}

func TestValidate(t *testing.T) {
	good := writeTemp(t, "cv.pdf", testutil.PDF("Experienced Go developer"))
	out, err := execute(t, "", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, `"accepted": true`)

	bad := writeTemp(t, "cv.pdf", testutil.PNG())
	out, err = execute(t, "", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected at signature")
	assert.Contains(t, out, `"accepted": false`)
}

func TestTokenVerifiesWithConfiguredSecret(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("RESUMEDROP_CONFIG", "")
	t.Setenv("RESUMEDROP_JWT_SECRET", "cli-secret")

	out, err := execute(t, "", "token", "user-1", "--email", "jane@example.com")
	require.NoError(t, err)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	id, err := auth.NewManager([]byte("cli-secret"), 0).Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "jane@example.com", id.Email)
}

func TestComposeFileDefaultExists(t *testing.T) {
	flag := newRootCommand().PersistentFlags().Lookup("compose-file")
	require.NotNil(t, flag)
	// Tests run from cmd/resumedrop; the stack commands run from the repo root.
	_, err := os.Stat(filepath.Join("..", "..", flag.DefValue))
	assert.NoError(t, err)
}
