package execx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "detect-secrets scan --all-files", Command{Name: "detect-secrets", Args: []string{"scan", "--all-files"}}.String())
	assert.Equal(t, "detect-secrets", Command{Name: "detect-secrets"}.String())
}

func TestOSRunnerCapturesStdout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0o644))

	out, err := OSRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "ls; echo noise >&2"},
		Dir:  dir,
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "marker.txt")
	assert.NotContains(t, string(out), "noise")
}

func TestOSRunnerReportsStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := OSRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 4"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
