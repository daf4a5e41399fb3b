package adapters

import (
	"context"
	"io"

	"obsctl/internal/types"
)

// ProjectClient scopes OBSClient calls to one project.
type ProjectClient struct {
	client *OBSClient
	name   string
}

func (c *OBSClient) Project(name string) ProjectClient {
	return ProjectClient{client: c, name: name}
}

func (p ProjectClient) Name() string { return p.name }

func (p ProjectClient) Package(name string) PackageClient {
	return PackageClient{client: p.client, project: p.name, name: name}
}

func (p ProjectClient) Delete(ctx context.Context, force bool) error {
	return p.client.DeleteProject(ctx, p.name, force)
}

func (p ProjectClient) ListPackages(ctx context.Context) ([]string, error) {
	return p.client.ListPackages(ctx, p.name)
}

func (p ProjectClient) Meta(ctx context.Context) (types.ProjectMeta, error) {
	return p.client.ProjectMeta(ctx, p.name)
}

func (p ProjectClient) SetMeta(ctx context.Context, meta types.ProjectMeta) error {
	return p.client.SetProjectMeta(ctx, p.name, meta)
}

func (p ProjectClient) Result(ctx context.Context) (types.ResultList, error) {
	return p.client.BuildResults(ctx, p.name, "")
}

func (p ProjectClient) Repositories(ctx context.Context) ([]string, error) {
	return p.client.Repositories(ctx, p.name)
}

func (p ProjectClient) Arches(ctx context.Context, repository string) ([]string, error) {
	return p.client.Arches(ctx, p.name, repository)
}

func (p ProjectClient) Rebuild(ctx context.Context, filters types.RebuildFilters) error {
	return p.client.Rebuild(ctx, p.name, filters)
}

func (p ProjectClient) JobHistory(ctx context.Context, repository string, arch string, filters types.JobHistoryFilters) (types.JobHistList, error) {
	return p.client.JobHistory(ctx, p.name, repository, arch, filters)
}

// PackageClient scopes OBSClient calls to one package.
type PackageClient struct {
	client  *OBSClient
	project string
	name    string
}

func (p PackageClient) Name() string    { return p.name }
func (p PackageClient) Project() string { return p.project }

func (p PackageClient) Create(ctx context.Context) error {
	return p.client.CreatePackage(ctx, p.project, p.name)
}

func (p PackageClient) Delete(ctx context.Context) error {
	return p.client.DeletePackage(ctx, p.project, p.name)
}

func (p PackageClient) Meta(ctx context.Context) (types.PackageMeta, error) {
	return p.client.PackageMeta(ctx, p.project, p.name)
}

func (p PackageClient) SetMeta(ctx context.Context, meta types.PackageMeta) error {
	return p.client.SetPackageMeta(ctx, p.project, p.name, meta)
}

func (p PackageClient) List(ctx context.Context, rev string) (types.SourceDirectory, error) {
	return p.client.ListSources(ctx, p.project, p.name, rev)
}

func (p PackageClient) ListMeta(ctx context.Context, rev string) (types.SourceDirectory, error) {
	return p.client.ListSourcesMeta(ctx, p.project, p.name, rev)
}

func (p PackageClient) Revisions(ctx context.Context) (types.RevisionList, error) {
	return p.client.Revisions(ctx, p.project, p.name)
}

func (p PackageClient) SourceFile(ctx context.Context, file string) (io.ReadCloser, error) {
	return p.client.SourceFile(ctx, p.project, p.name, file)
}

func (p PackageClient) VerifiedSourceFile(ctx context.Context, file string, md5 string, size int64) (io.ReadCloser, error) {
	return p.client.VerifiedSourceFile(ctx, p.project, p.name, file, md5, size)
}

func (p PackageClient) UploadForCommit(ctx context.Context, file string, content io.Reader) error {
	return p.client.UploadForCommit(ctx, p.project, p.name, file, content)
}

func (p PackageClient) Commit(ctx context.Context, files types.CommitFileList, opts types.CommitOptions) (types.CommitResult, error) {
	return p.client.Commit(ctx, p.project, p.name, files, opts)
}

func (p PackageClient) Branch(ctx context.Context, opts types.BranchOptions) (types.BranchStatus, error) {
	return p.client.Branch(ctx, p.project, p.name, opts)
}

func (p PackageClient) Result(ctx context.Context) (types.ResultList, error) {
	return p.client.BuildResults(ctx, p.project, p.name)
}

func (p PackageClient) Rebuild(ctx context.Context) error {
	return p.client.Rebuild(ctx, p.project, types.RebuildFilters{Packages: []string{p.name}})
}

func (p PackageClient) JobStatus(ctx context.Context, repository string, arch string) (types.JobStatus, error) {
	return p.client.JobStatus(ctx, p.project, p.name, repository, arch)
}

func (p PackageClient) History(ctx context.Context, repository string, arch string) (types.BuildHistory, error) {
	return p.client.BuildHistory(ctx, p.project, p.name, repository, arch)
}

func (p PackageClient) Status(ctx context.Context, repository string, arch string) (types.BuildStatus, error) {
	return p.client.BuildStatus(ctx, p.project, p.name, repository, arch)
}

func (p PackageClient) Binaries(ctx context.Context, repository string, arch string) (types.BinaryList, error) {
	return p.client.Binaries(ctx, p.project, p.name, repository, arch)
}

func (p PackageClient) BinaryFile(ctx context.Context, repository string, arch string, name string) (io.ReadCloser, error) {
	return p.client.BinaryFile(ctx, p.project, p.name, repository, arch, name)
}

func (p PackageClient) Log(repository string, arch string) PackageLog {
	return PackageLog{pkg: p, repository: repository, arch: arch}
}

// PackageLog addresses the build log of a package in one repository/arch.
type PackageLog struct {
	pkg        PackageClient
	repository string
	arch       string
}

func (l PackageLog) Entry(ctx context.Context, lastSucceeded bool) (types.LogEntry, error) {
	return l.pkg.client.LogEntry(ctx, l.pkg.project, l.pkg.name, l.repository, l.arch, lastSucceeded)
}

func (l PackageLog) Stream(ctx context.Context, opts types.LogStreamOptions) (io.ReadCloser, error) {
	return l.pkg.client.StreamLog(ctx, l.pkg.project, l.pkg.name, l.repository, l.arch, opts)
}
