package adapters

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obsctl/internal/obsmock"
	"obsctl/internal/types"
)

const helloMD5 = "5d41402abc4b2a76b9719d911017c592"

func newMockedClient(t *testing.T) (*obsmock.Mock, *OBSClient) {
	t.Helper()
	mock := obsmock.New("alice", "secret")
	t.Cleanup(mock.Close)
	client, err := NewOBSClient(OBSConfig{
		BaseURL:    mock.URL(),
		Username:   mock.Username(),
		Password:   mock.Password(),
		Timeout:    5 * time.Second,
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return mock, client
}

func TestPackageLifecycle(t *testing.T) {
	mock, client := newMockedClient(t)
	mock.AddProject("home:alice")
	ctx := t.Context()
	pkg := client.Project("home:alice").Package("hello")

	require.NoError(t, pkg.Create(ctx))
	packages, err := client.Project("home:alice").ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, packages)

	meta, err := pkg.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", meta.Name)
	assert.Equal(t, "home:alice", meta.Project)

	meta.Build = &types.PackageBuildMeta{Disabled: []types.BuildFlag{{Arch: "i586"}}}
	require.NoError(t, pkg.SetMeta(ctx, meta))
	meta, err = pkg.Meta(ctx)
	require.NoError(t, err)
	assert.True(t, meta.BuildDisabled("any", "i586"))

	metaListing, err := pkg.ListMeta(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2", metaListing.Rev)

	err = pkg.SetMeta(ctx, types.PackageMeta{Name: "other"})
	require.Error(t, err)

	require.NoError(t, pkg.Delete(ctx))
	_, err = pkg.Meta(ctx)
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
	api, ok := types.APIStatusOf(err)
	require.True(t, ok)
	assert.Equal(t, "unknown_package", api.Code)
}

func TestCommitUploadAndDownload(t *testing.T) {
	mock, client := newMockedClient(t)
	mock.AddProject("home:alice")
	mock.AddNewPackage("home:alice", "hello", obsmock.PackageOptions{})
	ctx := t.Context()
	pkg := client.Project("home:alice").Package("hello")

	files := types.CommitFileList{}
	files.Add(types.CommitEntryFromContents("hello.txt", []byte("hello")))
	result, err := pkg.Commit(ctx, files, types.CommitOptions{Comment: "initial"})
	require.NoError(t, err)
	require.True(t, result.HasMissing())
	assert.Equal(t, []types.CommitEntry{{Name: "hello.txt", MD5: helloMD5}}, result.Missing)

	require.NoError(t, pkg.UploadForCommit(ctx, "hello.txt", strings.NewReader("hello")))
	result, err = pkg.Commit(ctx, files, types.CommitOptions{Comment: "initial"})
	require.NoError(t, err)
	require.False(t, result.HasMissing())
	assert.Equal(t, "1", result.Success.Rev)

	listing, err := pkg.List(ctx, "")
	require.NoError(t, err)
	entry, ok := listing.Entry("hello.txt")
	require.True(t, ok)
	assert.Equal(t, helloMD5, entry.MD5)

	reader, err := pkg.VerifiedSourceFile(ctx, "hello.txt", entry.MD5, entry.Size)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "hello", string(data))

	reader, err = pkg.VerifiedSourceFile(ctx, "hello.txt", "00000000000000000000000000000000", entry.Size)
	require.NoError(t, err)
	_, err = io.ReadAll(reader)
	require.Error(t, err)
	kind, _ := types.ErrorKindOf(err)
	assert.Equal(t, types.ErrorKindChecksum, kind)
	require.NoError(t, reader.Close())

	revisions, err := pkg.Revisions(ctx)
	require.NoError(t, err)
	latest, ok := revisions.Latest()
	require.True(t, ok)
	assert.Equal(t, "initial", latest.Comment)
	assert.Equal(t, "alice", latest.User)

	_, err = pkg.SourceFile(ctx, "missing.txt")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}

func TestBranchPackage(t *testing.T) {
	mock, client := newMockedClient(t)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "openSUSE_Tumbleweed", "x86_64", types.RepositoryCodeFinished)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	ctx := t.Context()

	status, err := client.Project("devel").Package("hello").Branch(ctx, types.BranchOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.BranchStatus{
		SourceProject: "devel",
		SourcePackage: "hello",
		TargetProject: "home:alice:branches:devel",
		TargetPackage: "hello",
	}, status)

	listing, err := client.Project(status.TargetProject).Package(status.TargetPackage).List(ctx, "")
	require.NoError(t, err)
	require.Len(t, listing.LinkInfo, 1)
	assert.Equal(t, "devel", listing.LinkInfo[0].Project)
	assert.Equal(t, obsmock.ZeroRevSrcMD5, listing.LinkInfo[0].BaseRev)

	_, err = client.Project("devel").Package("hello").Branch(ctx, types.BranchOptions{})
	require.Error(t, err)
	api, ok := types.APIStatusOf(err)
	require.True(t, ok)
	assert.Equal(t, "double_branch_package", api.Code)

	_, err = client.Project("devel").Package("hello").Branch(ctx, types.BranchOptions{Force: true, Comment: "again"})
	require.NoError(t, err)

	repos, err := client.Project(status.TargetProject).Repositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"openSUSE_Tumbleweed"}, repos)
}

func TestBuildQueries(t *testing.T) {
	mock, client := newMockedClient(t)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeFinished)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	mock.SetPackageBuildStatus("devel", "repo", "x86_64", "hello", obsmock.BuildStatus{Code: types.PackageCodeSucceeded})
	mock.SetPackageBinaries("devel", "repo", "x86_64", "hello", map[string]obsmock.Binary{
		"hello.rpm": {Contents: []byte("rpm payload"), MTime: time.Unix(100, 0)},
	})
	mock.AddBuildHistory("devel", "repo", "x86_64", "hello", types.BuildHistoryEntry{Rev: "1", SrcMD5: "abc", VersRel: "1.0-1", BCnt: 1, Time: 100, Duration: 5})
	ctx := t.Context()
	pkg := client.Project("devel").Package("hello")

	results, err := pkg.Result(ctx)
	require.NoError(t, err)
	require.Len(t, results.Results, 1)
	status, ok := results.Results[0].Status("hello")
	require.True(t, ok)
	assert.Equal(t, types.PackageCodeSucceeded, status.Code)

	arches, err := client.Project("devel").Arches(ctx, "repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"x86_64"}, arches)

	binaries, err := pkg.Binaries(ctx, "repo", "x86_64")
	require.NoError(t, err)
	require.Len(t, binaries.Binaries, 1)
	assert.Equal(t, types.Binary{Filename: "hello.rpm", Size: 11, MTime: 100}, binaries.Binaries[0])

	file, err := pkg.BinaryFile(ctx, "repo", "x86_64", "hello.rpm")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = io.Copy(&buf, file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "rpm payload", buf.String())

	history, err := pkg.History(ctx, "repo", "x86_64")
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)
	assert.Equal(t, "1.0-1", history.Entries[0].VersRel)

	jobStatus, err := pkg.JobStatus(ctx, "repo", "x86_64")
	require.NoError(t, err)
	assert.True(t, jobStatus.Idle())

	mock.SetRebuildStatus("devel", obsmock.BuildStatus{Code: types.PackageCodeScheduled})
	require.NoError(t, pkg.Rebuild(ctx))
	buildStatus, err := pkg.Status(ctx, "repo", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, types.PackageCodeScheduled, buildStatus.Code)

	_, err = pkg.Status(ctx, "nope", "x86_64")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}

func TestStreamLog(t *testing.T) {
	mock, client := newMockedClient(t)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeFinished)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	mock.AddCompletedBuildLog("devel", "repo", "x86_64", "hello",
		obsmock.BuildLog{Contents: "some log text", ChunkSize: 5, MTime: time.Unix(200, 0)}, true)
	log := client.Project("devel").Package("hello").Log("repo", "x86_64")
	ctx := t.Context()

	tests := []struct {
		name string
		opts types.LogStreamOptions
		want string
	}{
		{name: "whole log", want: "some log text"},
		{name: "offset and end", opts: types.LogStreamOptions{Offset: 4, End: 11}, want: " log te"},
		{name: "last succeeded", opts: types.LogStreamOptions{LastSucceeded: true}, want: "some log text"},
		{name: "offset at end", opts: types.LogStreamOptions{Offset: 13}, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			stream, err := log.Stream(ctx, tt.opts)
			require.NoError(t, err)
			defer stream.Close()
			data, err := io.ReadAll(stream)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}

	entry, err := log.Entry(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, types.LogEntry{Size: 13, MTime: 200}, entry)

	stream, err := log.Stream(ctx, types.LogStreamOptions{Offset: 20})
	require.NoError(t, err)
	_, err = io.ReadAll(stream)
	require.Error(t, err)
	assert.Equal(t, 400, types.StatusCodeOf(err))
}
