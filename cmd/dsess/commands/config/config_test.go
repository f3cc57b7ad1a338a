package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/marmos91/dittosession/pkg/api/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := generateSchema()
	require.NoError(t, err)

	var schema struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "dsess Configuration", schema.Title)
	for _, key := range []string{"logging", "api", "session", "marshal", "store", "shutdown_timeout"} {
		assert.Contains(t, schema.Properties, key)
	}
}

func TestHashPasswordFromStdin(t *testing.T) {
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetIn(strings.NewReader("correct-horse-battery\n"))
	Cmd.SetArgs([]string{"hash-password", "--stdin"})
	t.Cleanup(func() {
		Cmd.SetArgs(nil)
		hashFromStdin = false
	})

	require.NoError(t, Cmd.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, auth.VerifyPassword(hash, "correct-horse-battery"))
}

func TestHashPasswordRejectsShortPassword(t *testing.T) {
	Cmd.SetOut(&bytes.Buffer{})
	Cmd.SetErr(&bytes.Buffer{})
	Cmd.SetIn(strings.NewReader("short"))
	Cmd.SetArgs([]string{"hash-password", "--stdin"})
	t.Cleanup(func() {
		Cmd.SetArgs(nil)
		hashFromStdin = false
	})

	assert.ErrorIs(t, Cmd.Execute(), auth.ErrPasswordTooShort)
}
