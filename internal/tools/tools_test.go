package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShayCichocki/kai/internal/scm"
	"github.com/ShayCichocki/kai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and returns canned output.
type fakeRunner struct {
	available bool
	out       string
	err       error
	calls     [][]string
	files     map[string]string
}

func (f *fakeRunner) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.files = make(map[string]string)
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		b, _ := os.ReadFile(filepath.Join(dir, e.Name()))
		f.files[e.Name()] = string(b)
	}
	return []byte(f.out), f.err
}

func (f *fakeRunner) Available(string) bool { return f.available }

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewFileSystem(t.TempDir()), NewGoCompile(nil), NewRunTests(nil))

	assert.Equal(t, []string{"file_system", "go_compile", "run_tests"}, reg.Names())
	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "file_system", defs[0].Name)
	assert.NotEmpty(t, defs[0].Parameters)

	sub, err := reg.Subset("go_compile")
	require.NoError(t, err)
	assert.Equal(t, []string{"go_compile"}, sub.Names())

	_, err = reg.Subset("web_search")
	assert.Error(t, err)

	var nilReg *Registry
	_, ok := nilReg.Get("file_system")
	assert.False(t, ok)
}

func TestFileSystem_WriteReadListDelete(t *testing.T) {
	root := t.TempDir()
	fs := NewFileSystem(root)
	ctx := context.Background()

	res, err := fs.Execute(ctx, map[string]string{"action": "write", "path": "pkg/cache.go", "content": "package pkg\n"})
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), models.ResultText(res))

	res, err = fs.Execute(ctx, map[string]string{"action": "read", "path": "pkg/cache.go"})
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", models.ResultText(res))

	res, err = fs.Execute(ctx, map[string]string{"action": "list", "path": "pkg"})
	require.NoError(t, err)
	assert.Contains(t, models.ResultText(res), "cache.go")

	res, err = fs.Execute(ctx, map[string]string{"action": "delete", "path": "pkg/cache.go"})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	_, statErr := os.Stat(filepath.Join(root, "pkg", "cache.go"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileSystem_StaysInSandbox(t *testing.T) {
	root := t.TempDir()
	fs := NewFileSystem(root)

	res, err := fs.Execute(context.Background(), map[string]string{"action": "write", "path": "../../escape.txt", "content": "x"})
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	_, statErr := os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, statErr, "traversal should be clamped to the sandbox root")
}

func TestFileSystem_SymlinkCannotEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("hidden"), 0644))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	fs := NewFileSystem(root)
	ctx := context.Background()

	res, err := fs.Execute(ctx, map[string]string{"action": "read", "path": "link/secret.txt"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
	assert.Contains(t, models.ResultText(res), ErrOutsideSandbox.Error())

	res, err = fs.Execute(ctx, map[string]string{"action": "write", "path": "link/new.txt", "content": "x"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
	assert.NoFileExists(t, filepath.Join(outside, "new.txt"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "a.go"), []byte("package pkg"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "pkg"), filepath.Join(root, "alias")))
	res, err = fs.Execute(ctx, map[string]string{"action": "read", "path": "alias/a.go"})
	require.NoError(t, err)
	assert.Equal(t, "package pkg", models.ResultText(res))
}

func TestFileSystem_DeleteRootRefused(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspace")
	require.NoError(t, os.Mkdir(root, 0755))
	fs := NewFileSystem(root)

	for _, p := range []string{"/", ".", "a/.."} {
		res, err := fs.Execute(context.Background(), map[string]string{"action": "delete", "path": p})
		require.NoError(t, err)
		assert.False(t, res.IsSuccess(), "delete %q", p)
		assert.DirExists(t, root)
	}
}

func TestFileSystem_Errors(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	res, err := fs.Execute(ctx, map[string]string{"action": "read"})
	require.NoError(t, err)
	assert.Contains(t, models.ResultText(res), "missing parameter: path")

	res, err = fs.Execute(ctx, map[string]string{"action": "chmod", "path": "x"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())

	res, err = fs.Execute(ctx, map[string]string{"action": "read", "path": "missing.txt"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
}

func TestFileSystem_ReadLimit(t *testing.T) {
	root := t.TempDir()
	big := strings.Repeat("a", maxReadBytes+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(big), 0644))

	res, err := NewFileSystem(root).Execute(context.Background(), map[string]string{"action": "read", "path": "big.txt"})
	require.NoError(t, err)
	assert.Contains(t, models.ResultText(res), "file too large")
}

func TestGoCompile_SyntaxFallback(t *testing.T) {
	tool := NewGoCompile(&fakeRunner{available: false})

	res, err := tool.Execute(context.Background(), map[string]string{"code": "package main\n\nfunc main() {}\n", "filename": "main.go"})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())

	res, err = tool.Execute(context.Background(), map[string]string{"code": "package main\n\nfunc main() {\n", "filename": "main.go"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
}

func TestGoCompile_UsesToolchain(t *testing.T) {
	runner := &fakeRunner{available: true}
	tool := NewGoCompile(runner)

	res, err := tool.Execute(context.Background(), map[string]string{"code": "package cache\n", "filename": "cache.go"})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"go", "vet", "./..."}, runner.calls[0])
	assert.Equal(t, "package cache\n", runner.files["cache.go"])
	assert.Contains(t, runner.files["go.mod"], "module kaiscratch")

	runner.err = errors.New("exit status 1")
	runner.out = "./cache.go:3:1: undefined: x"
	res, err = tool.Execute(context.Background(), map[string]string{"code": "package cache\n"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
	assert.Contains(t, models.ResultText(res), "undefined: x")
	assert.Contains(t, runner.files, "main.go")
}

func TestRunTests(t *testing.T) {
	runner := &fakeRunner{available: true, out: "ok  \tkaiscratch\t0.01s"}
	tool := NewRunTests(runner)

	res, err := tool.Execute(context.Background(), map[string]string{
		"source_code":     "package cache\n",
		"test_code":       "package cache\n",
		"source_filename": "cache.go",
	})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Contains(t, runner.files, "cache_test.go")
	assert.Equal(t, []string{"go", "test", "-count=1", "./..."}, runner.calls[0])

	runner.err = errors.New("exit status 1")
	runner.out = "--- FAIL: TestGet"
	res, err = tool.Execute(context.Background(), map[string]string{"source_code": "package cache\n", "test_code": "package cache\n"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
	assert.Contains(t, runner.files, "main_test.go")
}

func TestRunTests_SkipsWithoutToolchain(t *testing.T) {
	res, err := NewRunTests(&fakeRunner{}).Execute(context.Background(), map[string]string{"source_code": "a", "test_code": "b"})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
}

type fakeSCM struct {
	branches []string
	prs      []scm.PullRequest
	err      error
}

func (f *fakeSCM) CreateBranch(_ context.Context, name string) error {
	f.branches = append(f.branches, name)
	return f.err
}

func (f *fakeSCM) CreatePR(_ context.Context, pr scm.PullRequest) (string, error) {
	f.prs = append(f.prs, pr)
	return "https://github.com/acme/widgets/pull/1", f.err
}

func TestGitHubTool(t *testing.T) {
	sc := &fakeSCM{}
	tool := NewGitHub(sc)
	ctx := context.Background()

	res, err := tool.Execute(ctx, map[string]string{"action": "create_branch", "branch": "feature/x"})
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, []string{"feature/x"}, sc.branches)

	res, err = tool.Execute(ctx, map[string]string{"action": "create_pr", "branch": "feature/x", "title": "Add x"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets/pull/1", models.ResultText(res))
	require.Len(t, sc.prs, 1)
	assert.Equal(t, "main", sc.prs[0].Base)

	sc.err = scm.ErrNotConfigured
	res, err = tool.Execute(ctx, map[string]string{"action": "create_branch", "branch": "feature/y"})
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
}
