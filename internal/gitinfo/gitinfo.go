// Package gitinfo gathers the repository context a run is seeded with:
// remote URL, current branch, the hosting platform inferred from the
// remote, the platform-appropriate push command, and recent history.
package gitinfo

import (
	"context"
	"strings"

	"github.com/railcar-dev/railcar/internal/exec"
	"github.com/railcar-dev/railcar/internal/vars"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// Platform identifies the repository hosting platform.
type Platform string

const (
	PlatformGitHub    Platform = "github"
	PlatformGitLab    Platform = "gitlab"
	PlatformBitbucket Platform = "bitbucket"
	PlatformGerrit    Platform = "gerrit"
	PlatformUnknown   Platform = "unknown"
)

// Context is the collected repository state for one run.
type Context struct {
	RemoteURL string
	Branch    string
	Platform  Platform
	RecentLog string // last five commit summaries, one per line
}

// Collect inspects the repository at dir through the injected runner.
// It fails only when dir is not a git repository at all; individual
// introspection commands that fail leave their field empty.
func Collect(ctx context.Context, runner exec.Runner, dir string) (Context, error) {
	if _, err := runner.Run(ctx, "git rev-parse --git-dir", dir, nil); err != nil {
		return Context{}, schema.NewErrorf(schema.ErrCodeConfig,
			"not a git repository: %s", dir).WithCause(err)
	}

	gc := Context{Platform: PlatformUnknown}

	if res, err := runner.Run(ctx, "git remote get-url origin", dir, nil); err == nil {
		gc.RemoteURL = strings.TrimSpace(res.Stdout)
		gc.Platform = DetectPlatform(gc.RemoteURL)
	}
	if res, err := runner.Run(ctx, "git rev-parse --abbrev-ref HEAD", dir, nil); err == nil {
		gc.Branch = strings.TrimSpace(res.Stdout)
	}
	if res, err := runner.Run(ctx, "git log --oneline -5", dir, nil); err == nil {
		gc.RecentLog = strings.TrimSpace(res.Stdout)
	}

	return gc, nil
}

// DetectPlatform infers the hosting platform from a remote URL by simple
// substring matching. Gerrit is recognized by its conventional SSH port
// (:29418), the /a/ authenticated path prefix, or the literal substring.
func DetectPlatform(remoteURL string) Platform {
	url := strings.ToLower(remoteURL)
	switch {
	case url == "":
		return PlatformUnknown
	case strings.Contains(url, "github"):
		return PlatformGitHub
	case strings.Contains(url, "gitlab"):
		return PlatformGitLab
	case strings.Contains(url, "bitbucket"):
		return PlatformBitbucket
	case strings.Contains(url, ":29418"), strings.Contains(url, "/a/"), strings.Contains(url, "gerrit"):
		return PlatformGerrit
	default:
		return PlatformUnknown
	}
}

// PushTemplate returns the push command template for a platform, with
// <remote> and <branch> placeholders. Gerrit reviews go through the
// refs/for magic branch; every other platform pushes the branch directly.
func PushTemplate(p Platform) string {
	if p == PlatformGerrit {
		return "push <remote> HEAD:refs/for/<branch>"
	}
	return "push <remote> HEAD:<branch>"
}

// PushCommand renders the template for a concrete remote and branch.
func PushCommand(p Platform, remote, branch string) string {
	tpl := PushTemplate(p)
	tpl = strings.ReplaceAll(tpl, "<remote>", remote)
	return strings.ReplaceAll(tpl, "<branch>", branch)
}

// Seed populates the built-in variables on a fresh store.
func (c Context) Seed(store *vars.Store) {
	store.Set(vars.VarRemoteURL, c.RemoteURL)
	store.Set(vars.VarBranch, c.Branch)
	store.Set(vars.VarPlatform, string(c.Platform))
	store.Set(vars.VarPushCommand, PushCommand(c.Platform, "origin", c.Branch))
	store.Set(vars.VarRecentLog, c.RecentLog)
}
