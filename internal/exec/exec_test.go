package exec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railcar-dev/railcar/pkg/schema"
)

func TestShellRunnerCapturesStdout(t *testing.T) {
	r := NewShellRunner()
	res, err := r.Run(context.Background(), "echo hello", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}

func TestShellRunnerNonzeroExit(t *testing.T) {
	r := NewShellRunner()
	res, err := r.Run(context.Background(), "echo oops >&2; exit 3", "", nil)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "oops")

	var rcErr *schema.RailcarError
	require.ErrorAs(t, err, &rcErr)
	assert.Equal(t, schema.ErrCodeExecution, rcErr.Code)
	assert.Contains(t, rcErr.Message, "oops")
}

func TestShellRunnerWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := NewShellRunner()
	res, err := r.Run(context.Background(), "pwd", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(res.Stdout))
}

func TestShellRunnerEnv(t *testing.T) {
	r := NewShellRunner()
	res, err := r.Run(context.Background(), "echo $RAILCAR_TEST_VAR", "", map[string]string{"RAILCAR_TEST_VAR": "on-track"})
	require.NoError(t, err)
	assert.Equal(t, "on-track", strings.TrimSpace(res.Stdout))
}

func TestShellRunnerTimeout(t *testing.T) {
	r := &ShellRunner{Timeout: 50 * time.Millisecond}
	_, err := r.Run(context.Background(), "sleep 5", "", nil)
	require.Error(t, err)
	var rcErr *schema.RailcarError
	require.ErrorAs(t, err, &rcErr)
	assert.Contains(t, rcErr.Message, "timed out")
}

func TestTruncate(t *testing.T) {
	short := "fits"
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("x", FailureReasonLimit+50)
	got := Truncate(long)
	assert.Len(t, got, FailureReasonLimit+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestFailureTextPrefersStderr(t *testing.T) {
	assert.Equal(t, "boom", FailureText(" boom \n", assert.AnError))
	assert.Equal(t, assert.AnError.Error(), FailureText("", assert.AnError))
}

func TestLimitedWriterReportsFullLength(t *testing.T) {
	var sb strings.Builder
	lw := &limitedWriter{w: &sb, limit: 4}
	n, err := lw.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "abcd", sb.String())
}
