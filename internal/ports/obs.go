package ports

import (
	"context"
	"io"

	"obsctl/internal/types"
)

// OBSSourcePort covers the /source tree of the build service.
type OBSSourcePort interface {
	Projects(ctx context.Context) ([]string, error)
	ListPackages(ctx context.Context, project string) ([]string, error)
	DeleteProject(ctx context.Context, project string, force bool) error
	ProjectMeta(ctx context.Context, project string) (types.ProjectMeta, error)
	SetProjectMeta(ctx context.Context, project string, meta types.ProjectMeta) error
	CreatePackage(ctx context.Context, project string, pkg string) error
	SetPackageMeta(ctx context.Context, project string, pkg string, meta types.PackageMeta) error
	DeletePackage(ctx context.Context, project string, pkg string) error
	PackageMeta(ctx context.Context, project string, pkg string) (types.PackageMeta, error)
	ListSources(ctx context.Context, project string, pkg string, rev string) (types.SourceDirectory, error)
	ListSourcesMeta(ctx context.Context, project string, pkg string, rev string) (types.SourceDirectory, error)
	Revisions(ctx context.Context, project string, pkg string) (types.RevisionList, error)
	SourceFile(ctx context.Context, project string, pkg string, file string) (io.ReadCloser, error)
	VerifiedSourceFile(ctx context.Context, project string, pkg string, file string, md5 string, size int64) (io.ReadCloser, error)
	UploadForCommit(ctx context.Context, project string, pkg string, file string, content io.Reader) error
	Commit(ctx context.Context, project string, pkg string, files types.CommitFileList, opts types.CommitOptions) (types.CommitResult, error)
	Branch(ctx context.Context, project string, pkg string, opts types.BranchOptions) (types.BranchStatus, error)
}

// OBSBuildPort covers the /build tree of the build service.
type OBSBuildPort interface {
	BuildResults(ctx context.Context, project string, pkg string) (types.ResultList, error)
	Repositories(ctx context.Context, project string) ([]string, error)
	Arches(ctx context.Context, project string, repository string) ([]string, error)
	Rebuild(ctx context.Context, project string, filters types.RebuildFilters) error
	JobHistory(ctx context.Context, project string, repository string, arch string, filters types.JobHistoryFilters) (types.JobHistList, error)
	JobStatus(ctx context.Context, project string, pkg string, repository string, arch string) (types.JobStatus, error)
	BuildHistory(ctx context.Context, project string, pkg string, repository string, arch string) (types.BuildHistory, error)
	BuildStatus(ctx context.Context, project string, pkg string, repository string, arch string) (types.BuildStatus, error)
	Binaries(ctx context.Context, project string, pkg string, repository string, arch string) (types.BinaryList, error)
	BinaryFile(ctx context.Context, project string, pkg string, repository string, arch string, name string) (io.ReadCloser, error)
	LogEntry(ctx context.Context, project string, pkg string, repository string, arch string, lastSucceeded bool) (types.LogEntry, error)
	StreamLog(ctx context.Context, project string, pkg string, repository string, arch string, opts types.LogStreamOptions) (io.ReadCloser, error)
}

type OBSPort interface {
	OBSSourcePort
	OBSBuildPort
	BaseURL() string
}

// CredentialsPort looks up stored logins, typically from an oscrc file.
type CredentialsPort interface {
	DefaultAPIURL() (string, error)
	Credentials(apiURL string) (types.Credentials, error)
}

// KeyringPort reads passwords from the desktop secret store.
type KeyringPort interface {
	Password(service string, user string) (string, error)
}
