package cmd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/git"
	"github.com/joescharf/git-review/internal/output"
)

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

// reviewEnv creates a clone whose origin looks like a GitHub remote and a fake
// hub helper that logs its arguments. It returns the clone, the bare origin and
// the helper log.
func reviewEnv(t *testing.T) (work, origin, helperLog string) {
	t.Helper()
	testEnv(t)
	t.Cleanup(func() {
		force, submit, username, base, dryRun = false, false, "", "", false
	})

	origin = t.TempDir()
	work = t.TempDir()
	gitRun(t, origin, "init", "--bare", "-b", "main")
	gitRun(t, work, "init", "-b", "main")
	gitRun(t, work, "config", "user.email", "jane.doe@example.com")
	gitRun(t, work, "config", "user.name", "Jane")
	require.NoError(t, os.WriteFile(filepath.Join(work, "README"), []byte("readme\n"), 0644))
	gitRun(t, work, "add", ".")
	gitRun(t, work, "commit", "-m", "initial")
	gitRun(t, work, "remote", "add", "origin", origin)
	gitRun(t, work, "push", "-u", "origin", "main")
	gitRun(t, work, "remote", "set-head", "origin", "main")
	// Push to the bare directory but report a GitHub URL.
	gitRun(t, work, "config", "remote.origin.pushurl", origin)
	gitRun(t, work, "config", "remote.origin.url", "git@github.com:jane/app.git")
	gitRun(t, work, "config", "remote.origin.fetch", "+refs/heads/*:refs/remotes/origin/*")

	gitRun(t, work, "checkout", "-b", "fix-typo")
	require.NoError(t, os.WriteFile(filepath.Join(work, "README"), []byte("read me\n"), 0644))
	gitRun(t, work, "commit", "-am", "Fix typo in README")

	bin := t.TempDir()
	helperLog = filepath.Join(bin, "calls.log")
	script := "#!/bin/sh\necho \"$@\" >> " + helperLog + "\n" +
		"if [ \"$1\" = pull-request ]; then echo https://github.com/jane/app/pull/12; fi\n"
	helper := filepath.Join(bin, "hub")
	require.NoError(t, os.WriteFile(helper, []byte(script), 0755))
	viper.Set("github.helper", helper)
	return work, origin, helperLog
}

func TestReviewRun_GitHub(t *testing.T) {
	work, origin, helperLog := reviewEnv(t)
	buf := &bytes.Buffer{}
	ui.Out, ui.ErrOut = buf, buf

	require.NoError(t, reviewRun(context.Background(), work, "alice,bob"))

	assert.Equal(t, gitRun(t, work, "rev-parse", "fix-typo"), gitRun(t, origin, "rev-parse", "refs/heads/jane.doe-fix-typo"))
	calls, err := os.ReadFile(helperLog)
	require.NoError(t, err)
	assert.Equal(t, "browse -u\npull-request -m Fix typo in README -h jane.doe-fix-typo -b main -a alice,bob -r alice,bob\n", string(calls))
	assert.Contains(t, buf.String(), "https://reviewable.io/reviews/jane/app/12")
}

func TestReviewRun_UsernameFlagWins(t *testing.T) {
	work, origin, _ := reviewEnv(t)
	viper.Set("username", "configured")
	username = "flagged"
	force = true

	require.NoError(t, reviewRun(context.Background(), work, ""))
	assert.NotEmpty(t, gitRun(t, origin, "rev-parse", "refs/heads/flagged-fix-typo"))
}

func TestReviewRun_DryRunChangesNothing(t *testing.T) {
	work, origin, helperLog := reviewEnv(t)
	dryRun = true
	buf := &bytes.Buffer{}
	ui.Out, ui.ErrOut = buf, buf
	ui.DryRun = true

	require.NoError(t, reviewRun(context.Background(), work, "alice"))

	out := buf.String()
	assert.Contains(t, out, "jane.doe-fix-typo")
	assert.Contains(t, out, "github")
	assert.Contains(t, out, "git push -u origin fix-typo:jane.doe-fix-typo")
	_, err := os.Stat(helperLog)
	assert.True(t, os.IsNotExist(err))
	cmd := exec.Command("git", "-C", origin, "rev-parse", "--verify", "--quiet", "refs/heads/jane.doe-fix-typo")
	assert.Error(t, cmd.Run())
}

func TestResolveUsername(t *testing.T) {
	testEnv(t)
	t.Cleanup(func() { username = "" })
	work := t.TempDir()
	gitRun(t, work, "init", "-b", "main")
	gitRun(t, work, "config", "user.email", "joe@example.com")
	repo := git.NewRepo(git.NewClient(work), "origin")
	ctx := context.Background()

	got, err := resolveUsername(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "joe", got)

	viper.Set("username", "cfg")
	got, err = resolveUsername(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "cfg", got)

	username = "flag"
	got, err = resolveUsername(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "flag", got)
}

func TestPrintError_Hints(t *testing.T) {
	buf := &bytes.Buffer{}
	err := errdefs.Resolution("branch required")
	err.Hint = []string{"feature-a", "feature-b"}

	printError(buf, err)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Error: branch required\n"))
	assert.Contains(t, out, "feature-a")
	assert.Contains(t, out, "feature-b")
}

func TestPrintError_Plain(t *testing.T) {
	buf := &bytes.Buffer{}
	printError(buf, errdefs.Consistency("no diff"))
	assert.Equal(t, "Error: no diff\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	ui = output.New()
	buf := &bytes.Buffer{}
	versionCmd.SetOut(buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "git-review dev")
}
