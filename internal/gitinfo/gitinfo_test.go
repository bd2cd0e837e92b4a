package gitinfo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railcar-dev/railcar/internal/exec"
	"github.com/railcar-dev/railcar/internal/vars"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"git@github.com:acme/app.git", PlatformGitHub},
		{"https://github.com/acme/app", PlatformGitHub},
		{"https://gitlab.com/acme/app.git", PlatformGitLab},
		{"git@bitbucket.org:acme/app.git", PlatformBitbucket},
		{"ssh://user@review.example.com:29418/platform/app", PlatformGerrit},
		{"https://review.example.com/a/platform/app", PlatformGerrit},
		{"https://gerrit.example.com/platform/app", PlatformGerrit},
		{"https://git.internal.example.com/app.git", PlatformUnknown},
		{"", PlatformUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestPushTemplate(t *testing.T) {
	assert.Equal(t, "push <remote> HEAD:refs/for/<branch>", PushTemplate(PlatformGerrit))
	assert.Equal(t, "push <remote> HEAD:<branch>", PushTemplate(PlatformGitHub))
	assert.Equal(t, "push <remote> HEAD:<branch>", PushTemplate(PlatformUnknown))

	assert.Equal(t, "push origin HEAD:refs/for/main", PushCommand(PlatformGerrit, "origin", "main"))
	assert.Equal(t, "push origin HEAD:main", PushCommand(PlatformGitHub, "origin", "main"))
}

func TestCollect(t *testing.T) {
	runner := exec.NewFakeRunner().
		Script("git rev-parse --git-dir", ".git\n").
		Script("git remote get-url origin", "git@github.com:acme/app.git\n").
		Script("git rev-parse --abbrev-ref HEAD", "feature/login\n").
		Script("git log --oneline -5", "abc123 fix login\ndef456 add tests\n")

	gc, err := Collect(context.Background(), runner, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/app.git", gc.RemoteURL)
	assert.Equal(t, "feature/login", gc.Branch)
	assert.Equal(t, PlatformGitHub, gc.Platform)
	assert.Contains(t, gc.RecentLog, "fix login")
}

func TestCollectNotARepo(t *testing.T) {
	runner := exec.NewFakeRunner() // rev-parse unscripted -> fails
	_, err := Collect(context.Background(), runner, "/tmp/nowhere")
	require.Error(t, err)
}

func TestCollectPartialFailuresAreSoft(t *testing.T) {
	runner := exec.NewFakeRunner().
		Script("git rev-parse --git-dir", ".git\n").
		Script("git rev-parse --abbrev-ref HEAD", "main\n")
	// remote get-url and log are unscripted and fail.

	gc, err := Collect(context.Background(), runner, "/repo")
	require.NoError(t, err)
	assert.Empty(t, gc.RemoteURL)
	assert.Equal(t, PlatformUnknown, gc.Platform)
	assert.Equal(t, "main", gc.Branch)
}

func TestSeed(t *testing.T) {
	store := vars.NewStore()
	gc := Context{
		RemoteURL: "ssh://user@review.example.com:29418/platform/app",
		Branch:    "main",
		Platform:  PlatformGerrit,
		RecentLog: "abc123 initial",
	}
	gc.Seed(store)

	got, _ := store.Get(vars.VarPushCommand)
	assert.Equal(t, "push origin HEAD:refs/for/main", got)
	got, _ = store.Get(vars.VarPlatform)
	assert.Equal(t, "gerrit", got)
	assert.Equal(t, "git push origin HEAD:refs/for/main", store.Interpolate("git {{push_command}}"))
}
