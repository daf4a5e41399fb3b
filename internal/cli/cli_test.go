package cli

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"obsctl/internal/obsmock"
	"obsctl/internal/types"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{
		"monitor", "projects", "list", "meta", "result", "status",
		"jobstatus", "history", "jobhistory", "revisions", "repos", "log",
		"download", "binaries", "commit", "branch", "rebuild", "create", "delete",
	}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestRootPersistentFlags(t *testing.T) {
	root := newRootCommand()
	flags := []string{
		"config", "log-level", "apiurl", "oscrc", "user", "pass", "timeout",
		"retries", "retry-delay-ms", "rate-limit", "format", "metrics-file",
	}
	for _, name := range flags {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestBranchCommandFlags(t *testing.T) {
	cmd := newBranchCommand()
	flags := []string{
		"target-project", "target-package", "message", "force", "missing-ok",
		"add-repositories-rebuild", "add-repositories-block",
	}
	for _, name := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestLogCommandFlags(t *testing.T) {
	cmd := newLogCommand()
	for _, name := range []string{"offset", "end", "last-succeeded", "entry"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{name: "nil cmd with value returns value", value: "explicit", expected: "explicit"},
		{name: "nil cmd empty value returns empty", value: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, resolveStrings(nil, []string{"a", "b"}, "test_key", "test-flag"))
	assert.Empty(t, resolveStrings(nil, nil, "test_key", "test-flag"))
}

func TestResolveScalars(t *testing.T) {
	assert.True(t, resolveBool(nil, true, "test_key", "test-flag"))
	assert.False(t, resolveBool(nil, false, "test_key", "test-flag"))
	assert.Equal(t, 42, resolveInt(nil, 42, "test_key", "test-flag"))
	assert.Equal(t, 2.5, resolveFloat(nil, 2.5, "test_key", "test-flag"))
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

func TestTargetFromArgs(t *testing.T) {
	got := target(nil, []string{"devel", " hello ", "repo", "x86_64", "extra"})
	assert.Equal(t, "devel", got.Project)
	assert.Equal(t, "hello", got.Package)
	assert.Equal(t, "repo", got.Repository)
	assert.Equal(t, "x86_64", got.Arch)
}

func TestParseRepositories(t *testing.T) {
	repos, err := parseRepositories(createOptions{
		Repos:   []string{"openSUSE_Tumbleweed:x86_64,aarch64", "15.6:x86_64"},
		Paths:   []string{"openSUSE:Factory/snapshot"},
		Rebuild: "local",
	})
	require.NoError(t, err)
	want := []types.RepositoryMeta{
		{
			Name:    "openSUSE_Tumbleweed",
			Rebuild: types.RebuildModeLocal,
			Paths:   []types.RepositoryPath{{Project: "openSUSE:Factory", Repository: "snapshot"}},
			Arches:  []string{"x86_64", "aarch64"},
		},
		{
			Name:    "15.6",
			Rebuild: types.RebuildModeLocal,
			Paths:   []types.RepositoryPath{{Project: "openSUSE:Factory", Repository: "snapshot"}},
			Arches:  []string{"x86_64"},
		},
	}
	if diff := cmp.Diff(want, repos); diff != "" {
		t.Fatalf("unexpected repositories (-want +got):\n%s", diff)
	}

	for _, opts := range []createOptions{
		{Repos: []string{"noarches"}},
		{Repos: []string{"r:x86_64"}, Paths: []string{"noslash"}},
		{Repos: []string{"r:x86_64"}, Rebuild: "sometimes"},
		{Paths: []string{"a/b"}},
	} {
		_, err := parseRepositories(opts)
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	}
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "invalid argument", err: errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("bad input"), expected: 2},
		{name: "already exists", err: errbuilder.New().WithCode(errbuilder.CodeAlreadyExists).WithMsg("dup"), expected: 2},
		{name: "permission denied", err: errbuilder.New().WithCode(errbuilder.CodePermissionDenied).WithMsg("nope"), expected: 3},
		{name: "failed precondition", err: errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition).WithMsg("build failure detected"), expected: 4},
		{name: "not found", err: errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("file missing"), expected: 5},
		{name: "internal error", err: errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("boom"), expected: 5},
		{name: "http 404", err: &types.OBSError{Kind: types.ErrorKindHTTP, StatusCode: http.StatusNotFound}, expected: 5},
		{name: "http 401", err: &types.OBSError{Kind: types.ErrorKindHTTP, StatusCode: http.StatusUnauthorized}, expected: 3},
		{name: "http 400", err: &types.OBSError{Kind: types.ErrorKindHTTP, StatusCode: http.StatusBadRequest}, expected: 2},
		{name: "http 503", err: &types.OBSError{Kind: types.ErrorKindHTTP, StatusCode: http.StatusServiceUnavailable}, expected: 6},
		{name: "transport", err: &types.OBSError{Kind: types.ErrorKindTransport, Cause: assert.AnError}, expected: 6},
		{name: "checksum", err: types.NewChecksumError("a", "b"), expected: 6},
		{name: "decode", err: &types.OBSError{Kind: types.ErrorKindDecode}, expected: 6},
		{name: "invalid url", err: &types.OBSError{Kind: types.ErrorKindInvalidURL}, expected: 2},
		{name: "unknown error", err: assert.AnError, expected: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCodeForError(tt.err))
		})
	}
}

// ---------- End to end against the mock server ----------

func runCLI(t *testing.T, mock *obsmock.Mock, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	base := []string{
		"--apiurl", mock.URL(),
		"--user", mock.Username(),
		"--pass", mock.Password(),
		"--retries", "1",
		"--log-level", "error",
	}
	root.SetArgs(append(base, args...))
	err := run(t.Context(), root)
	return out.String(), err
}

func TestCommandsAgainstMock(t *testing.T) {
	mock := obsmock.New("alice", "secret")
	t.Cleanup(mock.Close)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeFinished)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	mock.SetPackageBuildStatus("devel", "repo", "x86_64", "hello", obsmock.BuildStatus{Code: types.PackageCodeSucceeded})
	mock.AddCompletedBuildLog("devel", "repo", "x86_64", "hello",
		obsmock.BuildLog{Contents: "build ok\n", MTime: time.Unix(10, 0)}, true)

	out, err := runCLI(t, mock, "projects")
	require.NoError(t, err)
	assert.Equal(t, "devel\n", out)

	out, err = runCLI(t, mock, "result", "devel", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "x86_64")

	out, err = runCLI(t, mock, "--format", "yaml", "status", "devel", "hello", "repo", "x86_64")
	require.NoError(t, err)
	var status types.BuildStatus
	require.NoError(t, yaml.Unmarshal([]byte(out), &status))
	assert.Equal(t, types.PackageCodeSucceeded, status.Code)

	out, err = runCLI(t, mock, "log", "devel", "hello", "repo", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "build ok\n", out)

	out, err = runCLI(t, mock, "monitor", "--interval", "1", "devel", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "* repo x86_64 => succeeded")

	_, err = runCLI(t, mock, "meta", "devel", "missing")
	require.Error(t, err)
	assert.Equal(t, 5, exitCodeForError(err))
}

func TestMonitorFailureExitCode(t *testing.T) {
	mock := obsmock.New("alice", "secret")
	t.Cleanup(mock.Close)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeFinished)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	mock.SetPackageBuildStatus("devel", "repo", "x86_64", "hello", obsmock.BuildStatus{Code: types.PackageCodeFailed})

	out, err := runCLI(t, mock, "monitor", "devel", "hello")
	require.Error(t, err)
	assert.Equal(t, 4, exitCodeForError(err))
	assert.Contains(t, out, "failed after 1 polls")
}

func TestJobStatusShowsRepositoryCode(t *testing.T) {
	mock := obsmock.New("alice", "secret")
	t.Cleanup(mock.Close)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeBuilding)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})

	out, err := runCLI(t, mock, "jobstatus", "devel", "hello", "repo", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "no job\n", out)

	mock.SetJobStatus("devel", "repo", "x86_64", "hello", types.JobStatus{
		Code:     types.RepositoryCodeBuilding,
		WorkerID: "worker:3",
		JobID:    "abc",
	})
	out, err = runCLI(t, mock, "jobstatus", "devel", "hello", "repo", "x86_64")
	require.NoError(t, err)
	assert.Contains(t, out, "building")
	assert.Contains(t, out, "worker:3")

	out, err = runCLI(t, mock, "--format", "yaml", "jobstatus", "devel", "hello", "repo", "x86_64")
	require.NoError(t, err)
	var status types.JobStatus
	require.NoError(t, yaml.Unmarshal([]byte(out), &status))
	assert.Equal(t, types.RepositoryCodeBuilding, status.Code)
}

func TestUserWithoutPassIsRejected(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--apiurl", "http://127.0.0.1:1", "--user", "alice", "--pass", "", "projects"})
	err := root.ExecuteContext(t.Context())
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeForError(err))
}

func TestMetricsFileWrittenWhenCommandFails(t *testing.T) {
	mock := obsmock.New("alice", "secret")
	t.Cleanup(mock.Close)
	mock.AddProject("devel")
	path := filepath.Join(t.TempDir(), "obsctl.prom")

	_, err := runCLI(t, mock, "--metrics-file", path, "meta", "devel", "missing")
	require.Error(t, err)
	assert.Equal(t, 5, exitCodeForError(err))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `obsctl_client_requests_total{code="404",method="GET"}`)
}
