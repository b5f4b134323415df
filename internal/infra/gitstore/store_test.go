package gitstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
)

var testNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func setupTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	// Create an initial commit so HEAD resolves
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: testNow},
	})
	require.NoError(t, err)

	return dir, repo
}

func sampleTriples() []domain.Triple {
	s := domain.NewScript(
		domain.NewText(domain.RoleSystem, "Be brief.\nReally.", []domain.Token{4, 5, 6}),
		domain.NewBranch(domain.RoleAssistant,
			domain.NewOperationList(domain.RoleAssistant, domain.NewText(domain.RoleAssistant, "yes", []domain.Token{9})),
			domain.NewOperationList(domain.RoleAssistant, domain.NewCompletion(domain.RoleAssistant, 12)),
		),
		domain.NewText(domain.RoleUser, "", nil),
	)
	return s.Triples()
}

func assertTriplesEqual(t *testing.T, want, got []domain.Triple) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "triple %d: want %+v, got %+v", i, want[i], got[i])
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	_, repo := setupTestRepo(t)
	store := NewWithRepo(repo, "tokenscope", &testutil.MockClock{NowTime: testNow})
	want := sampleTriples()

	require.NoError(t, store.Save("demo", want))

	got, err := store.Get("demo")
	require.NoError(t, err)
	assertTriplesEqual(t, want, got)

	// The script lives under the namespaced ref.
	_, err = repo.Reference(plumbing.ReferenceName("refs/tokenscope/scripts/demo"), true)
	assert.NoError(t, err)
}

func TestStore_BlobIsReadableYAML(t *testing.T) {
	_, repo := setupTestRepo(t)
	store := NewWithRepo(repo, "ns", &testutil.MockClock{NowTime: testNow})
	require.NoError(t, store.Save("demo", sampleTriples()[:1]))

	ref, err := repo.Reference(plumbing.ReferenceName(domain.ScriptRef("ns", "demo")), true)
	require.NoError(t, err)
	data, err := store.readBlob(ref.Hash())
	require.NoError(t, err)

	assert.Contains(t, string(data), "type: text")
	assert.Contains(t, string(data), "role: system")
	assert.Contains(t, string(data), "tokenized: [4, 5, 6]")
}

func TestStore_GetNotFound(t *testing.T) {
	_, repo := setupTestRepo(t)
	store := NewWithRepo(repo, "tokenscope", &testutil.MockClock{NowTime: testNow})

	_, err := store.Get("missing")
	require.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestStore_List(t *testing.T) {
	_, repo := setupTestRepo(t)
	clock := &testutil.MockClock{NowTime: testNow}
	store := NewWithRepo(repo, "tokenscope", clock)
	other := NewWithRepo(repo, "elsewhere", clock)

	require.NoError(t, store.Save("b", sampleTriples()))
	clock.NowTime = testNow.Add(time.Minute)
	require.NoError(t, store.Save("a", sampleTriples()[:1]))
	require.NoError(t, other.Save("c", nil))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, 1, infos[0].Operations)
	assert.True(t, infos[0].UpdatedAt.Equal(testNow.Add(time.Minute)))
	assert.Equal(t, "b", infos[1].Name)
	assert.Equal(t, 3, infos[1].Operations)
}

func TestStore_Delete(t *testing.T) {
	_, repo := setupTestRepo(t)
	store := NewWithRepo(repo, "tokenscope", &testutil.MockClock{NowTime: testNow})
	require.NoError(t, store.Save("x", sampleTriples()))

	require.NoError(t, store.Delete("x"))

	_, err := store.Get("x")
	require.ErrorIs(t, err, domain.ErrScriptNotFound)
	require.ErrorIs(t, store.Delete("x"), domain.ErrScriptNotFound)
}

func TestStore_InvalidName(t *testing.T) {
	_, repo := setupTestRepo(t)
	store := NewWithRepo(repo, "tokenscope", &testutil.MockClock{NowTime: testNow})

	require.ErrorIs(t, store.Save("a/b", nil), domain.ErrInvalidScriptName)
	require.ErrorIs(t, store.Delete(""), domain.ErrEmptyScriptName)
}

func TestNew_OpensFromSubdirectory(t *testing.T) {
	dir, _ := setupTestRepo(t)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	store, err := New(sub, "tokenscope", &testutil.MockClock{NowTime: testNow})
	require.NoError(t, err)
	require.NoError(t, store.Save("s", sampleTriples()))

	// A second store over the same repository sees the script.
	again, err := New(dir, "tokenscope", &testutil.MockClock{NowTime: testNow})
	require.NoError(t, err)
	got, err := again.Get("s")
	require.NoError(t, err)
	assertTriplesEqual(t, sampleTriples(), got)
}

func TestNew_NotARepository(t *testing.T) {
	_, err := New(t.TempDir(), "tokenscope", &testutil.MockClock{NowTime: testNow})
	assert.Error(t, err)
}
