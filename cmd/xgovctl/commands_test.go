package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xgovern/pkg/rate/xgovernor"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "governor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCmdValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := writeConfig(t, `
safety_buffer: 0.2
policies:
  tweets:
    limit: 100
    window_seconds: 600
`)
		var buf bytes.Buffer
		require.NoError(t, cmdValidate(&buf, path))
		assert.Contains(t, buf.String(), "配置合法")
	})

	t.Run("InvalidPolicy", func(t *testing.T) {
		path := writeConfig(t, `
policies:
  tweets:
    limit: -1
    window_seconds: 600
`)
		var buf bytes.Buffer
		assert.ErrorIs(t, cmdValidate(&buf, path), xgovernor.ErrInvalidPolicy)
	})

	t.Run("MissingFile", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, cmdValidate(&buf, filepath.Join(t.TempDir(), "absent.yaml")),
			xgovernor.ErrLoadFailed)
	})
}

func TestCmdPolicies(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cmdPolicies(&buf, ""))

		out := buf.String()
		assert.Contains(t, out, "/tweets")
		assert.Contains(t, out, "/graphql")
		assert.Contains(t, out, xgovernor.DefaultPattern)
	})

	t.Run("FileOverrides", func(t *testing.T) {
		path := writeConfig(t, `
policies:
  tweets:
    limit: 42
    window_seconds: 60
`)
		var buf bytes.Buffer
		require.NoError(t, cmdPolicies(&buf, path))

		for _, line := range strings.Split(buf.String(), "\n") {
			if strings.HasPrefix(line, "/tweets") {
				assert.Contains(t, line, "42")
				return
			}
		}
		t.Fatal("missing /tweets row")
	})
}

func TestCmdSimulate(t *testing.T) {
	t.Run("UnderLimit", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cmdSimulate(&buf, "", "/tweets/1", 10))
		assert.Contains(t, buf.String(), "可以立即发起请求")
	})

	t.Run("OverEffectiveLimit", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cmdSimulate(&buf, "", "/tweets/1", 300))
		assert.Contains(t, buf.String(), "需要等待")
	})
}

func TestCreateApp(t *testing.T) {
	app := createApp()
	assert.Equal(t, "xgovctl", app.Name)
	assert.Len(t, app.Commands, 4)
}
