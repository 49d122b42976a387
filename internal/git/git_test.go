package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/git-review/internal/errdefs"
)

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

// initTestRepo creates a work repo on main with one commit, pushed to a bare origin.
func initTestRepo(t *testing.T) (work, remote string) {
	t.Helper()
	remote = t.TempDir()
	work = t.TempDir()

	run(t, remote, "init", "--bare", "-b", "main")
	run(t, work, "init", "-b", "main")
	run(t, work, "config", "user.email", "test@test.com")
	run(t, work, "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(filepath.Join(work, "file1.txt"), []byte("hello\n"), 0644))
	run(t, work, "add", ".")
	run(t, work, "commit", "-m", "initial")
	run(t, work, "remote", "add", "origin", remote)
	run(t, work, "push", "-u", "origin", "main")
	run(t, work, "remote", "set-head", "origin", "main")
	return work, remote
}

func TestRepo_Branches(t *testing.T) {
	work, _ := initTestRepo(t)
	run(t, work, "checkout", "-b", "feature")

	ctx := context.Background()
	r := NewRepo(NewClient(work), "")

	head, err := r.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature", head)

	def, err := r.DefaultBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", def)

	branches, err := r.LocalBranches(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feature", "main"}, branches)
}

func TestRepo_UpstreamBranch(t *testing.T) {
	work, _ := initTestRepo(t)
	ctx := context.Background()
	r := NewRepo(NewClient(work), "origin")

	upstream, err := r.UpstreamBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "main", upstream)

	run(t, work, "checkout", "-b", "feature")
	upstream, err = r.UpstreamBranch(ctx, "feature")
	require.NoError(t, err)
	assert.Empty(t, upstream)
}

func TestRepo_RemoteBranchesContaining(t *testing.T) {
	work, _ := initTestRepo(t)
	ctx := context.Background()
	r := NewRepo(NewClient(work), "origin")

	sha, err := r.RevParse(ctx, "HEAD")
	require.NoError(t, err)

	branches, err := r.RemoteBranchesContaining(ctx, sha)
	require.NoError(t, err)
	assert.Equal(t, []string{"origin/main"}, branches)

	run(t, work, "commit", "--allow-empty", "-m", "local only")
	local, err := r.RevParse(ctx, "HEAD")
	require.NoError(t, err)
	branches, err = r.RemoteBranchesContaining(ctx, local)
	require.NoError(t, err)
	assert.Empty(t, branches)
}

func TestRepo_RecentCommitsAndLog(t *testing.T) {
	work, _ := initTestRepo(t)
	run(t, work, "checkout", "-b", "feature")
	run(t, work, "commit", "--allow-empty", "-m", "first change")
	run(t, work, "commit", "--allow-empty", "-m", "second change")

	ctx := context.Background()
	r := NewRepo(NewClient(work), "origin")

	commits, err := r.RecentCommits(ctx, "feature", 5)
	require.NoError(t, err)
	assert.Len(t, commits, 3)
	head, err := r.RevParse(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, head, commits[0])

	commits, err = r.RecentCommits(ctx, "feature", 2)
	require.NoError(t, err)
	assert.Len(t, commits, 2)

	log, err := r.LogBodies(ctx, r.RemoteRef("main"), "feature")
	require.NoError(t, err)
	assert.Equal(t, "second change\n\nfirst change", log)
}

func TestRealClient_HasDivergence(t *testing.T) {
	work, _ := initTestRepo(t)
	ctx := context.Background()
	c := NewClient(work)

	dirty, err := c.HasDivergence(ctx, "HEAD")
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(work, "file1.txt"), []byte("changed\n"), 0644))
	dirty, err = c.HasDivergence(ctx, "HEAD")
	require.NoError(t, err)
	assert.True(t, dirty)

	_, err = c.HasDivergence(ctx, "no-such-ref")
	assert.Error(t, err)
}

func TestRepo_ConfigQueries(t *testing.T) {
	work, remote := initTestRepo(t)
	ctx := context.Background()
	r := NewRepo(NewClient(work), "origin")

	url, err := r.RemoteURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, remote, url)

	email, err := r.UserEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test@test.com", email)

	top, err := r.TopLevel(ctx)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(work)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(top)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRealClient_QueryError(t *testing.T) {
	work, _ := initTestRepo(t)
	_, err := NewClient(work).Query(context.Background(), "rev-parse", "--verify", "nope")
	require.Error(t, err)
	assert.True(t, errdefs.Is(err, errdefs.KindExecution))
	assert.Contains(t, err.Error(), "git rev-parse --verify nope")
}

func TestRepo_DefaultBranchMissing(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "init", "-b", "main")

	_, err := NewRepo(NewClient(dir), "origin").DefaultBranch(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.Is(err, errdefs.KindResolution))
	assert.Contains(t, err.Error(), "git remote set-head origin --auto")
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "joe", UsernameFromEmail("joe@example.com"))
	assert.Equal(t, "joe", UsernameFromEmail("joe"))
	assert.Empty(t, UsernameFromEmail(""))
}
