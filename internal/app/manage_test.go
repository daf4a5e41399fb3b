package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obsctl/internal/obsmock"
	"obsctl/internal/types"
)

func TestCreateAndDelete(t *testing.T) {
	mock, svc, conn := newTestService(t)
	ctx := t.Context()
	project := TargetRequest{Connection: conn, Project: "home:alice:test"}
	pkg := TargetRequest{Connection: conn, Project: "home:alice:test", Package: "hello"}

	repos := []types.RepositoryMeta{{
		Name:    "openSUSE_Tumbleweed",
		Rebuild: types.RebuildModeLocal,
		Paths:   []types.RepositoryPath{{Project: "openSUSE:Factory", Repository: "snapshot"}},
		Arches:  []string{"x86_64"},
	}}
	require.NoError(t, svc.Create(ctx, CreateRequest{
		Target:       project,
		Title:        "Test project",
		Description:  "scratch",
		Repositories: repos,
	}))
	assert.True(t, mock.HasProject("home:alice:test"))
	projectMeta, err := svc.Meta(ctx, project)
	require.NoError(t, err)
	require.NotNil(t, projectMeta.Project)
	assert.Equal(t, "Test project", projectMeta.Project.Title)
	assert.Equal(t, "scratch", projectMeta.Project.Description)
	assert.Equal(t, repos, projectMeta.Project.Repositories)

	require.NoError(t, svc.Create(ctx, CreateRequest{Target: pkg, Title: "Hello", Description: "says hello"}))
	assert.True(t, mock.HasPackage("home:alice:test", "hello"))
	meta, err := svc.Meta(ctx, pkg)
	require.NoError(t, err)
	require.NotNil(t, meta.Package)
	assert.Equal(t, "Hello", meta.Package.Title)
	assert.Equal(t, "says hello", meta.Package.Description)

	err = svc.Create(ctx, CreateRequest{Target: pkg, Repositories: []types.RepositoryMeta{{Name: "x"}}})
	require.Error(t, err)

	require.Error(t, svc.Delete(ctx, DeleteRequest{Target: pkg, Force: true}))
	require.NoError(t, svc.Delete(ctx, DeleteRequest{Target: pkg}))
	assert.False(t, mock.HasPackage("home:alice:test", "hello"))

	require.NoError(t, svc.Delete(ctx, DeleteRequest{Target: project}))
	assert.False(t, mock.HasProject("home:alice:test"))
}

func TestBranchAndRebuild(t *testing.T) {
	mock, svc, conn := newTestService(t)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeFinished)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	mock.SetPackageBuildStatus("devel", "repo", "x86_64", "hello", obsmock.BuildStatus{Code: types.PackageCodeSucceeded})
	ctx := t.Context()

	status, err := svc.Branch(ctx, BranchRequest{
		Target:  TargetRequest{Connection: conn, Project: "devel", Package: "hello"},
		Options: types.BranchOptions{TargetProject: "home:alice:work"},
	})
	require.NoError(t, err)
	assert.Equal(t, "home:alice:work", status.TargetProject)
	assert.Equal(t, "hello", status.TargetPackage)
	assert.True(t, mock.HasPackage("home:alice:work", "hello"))

	mock.SetRebuildStatus("devel", obsmock.BuildStatus{Code: types.PackageCodeScheduled})
	require.NoError(t, svc.Rebuild(ctx, RebuildRequest{Target: TargetRequest{Connection: conn, Project: "devel", Package: "hello"}}))
	current, ok := mock.PackageStatus("devel", "repo", "x86_64", "hello")
	require.True(t, ok)
	assert.Equal(t, types.PackageCodeScheduled, current.Code)

	err = svc.Rebuild(ctx, RebuildRequest{Target: TargetRequest{Connection: conn, Project: "devel"}, Packages: []string{"missing"}})
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}
