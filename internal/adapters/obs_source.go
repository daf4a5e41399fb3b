package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"obsctl/internal/core"
	"obsctl/internal/types"
)

func validateTarget(project string, pkg string) error {
	if err := core.ValidateProjectName(project); err != nil {
		return err
	}
	if pkg == "" {
		return nil
	}
	return core.ValidatePackageName(pkg)
}

// Projects lists every project visible to the user.
func (c *OBSClient) Projects(ctx context.Context) ([]string, error) {
	var dir types.Directory
	if err := c.getXML(ctx, []string{"source"}, nil, &dir); err != nil {
		return nil, err
	}
	return dir.Names(), nil
}

func (c *OBSClient) ListPackages(ctx context.Context, project string) ([]string, error) {
	if err := validateTarget(project, ""); err != nil {
		return nil, err
	}
	var dir types.Directory
	if err := c.getXML(ctx, []string{"source", project}, nil, &dir); err != nil {
		return nil, err
	}
	return dir.Names(), nil
}

func (c *OBSClient) DeleteProject(ctx context.Context, project string, force bool) error {
	if err := validateTarget(project, ""); err != nil {
		return err
	}
	_, err := c.command(ctx, http.MethodDelete, []string{"source", project}, query{}.addIf(force, "force", "1"))
	return err
}

func (c *OBSClient) ProjectMeta(ctx context.Context, project string) (types.ProjectMeta, error) {
	if err := validateTarget(project, ""); err != nil {
		return types.ProjectMeta{}, err
	}
	var meta types.ProjectMeta
	if err := c.getXML(ctx, []string{"source", project, "_meta"}, nil, &meta); err != nil {
		return types.ProjectMeta{}, err
	}
	return meta, nil
}

// SetProjectMeta creates or replaces the meta of a project. An empty
// meta.Name is filled in from project.
func (c *OBSClient) SetProjectMeta(ctx context.Context, project string, meta types.ProjectMeta) error {
	if err := validateTarget(project, ""); err != nil {
		return err
	}
	if meta.Name == "" {
		meta.Name = project
	}
	if meta.Name != project {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("project meta is named %q, expected %q", meta.Name, project))
	}
	_, err := c.sendXML(ctx, http.MethodPut, []string{"source", project, "_meta"}, nil, meta)
	return err
}

// CreatePackage creates an empty package with a default meta.
func (c *OBSClient) CreatePackage(ctx context.Context, project string, pkg string) error {
	return c.SetPackageMeta(ctx, project, pkg, types.PackageMeta{})
}

func (c *OBSClient) SetPackageMeta(ctx context.Context, project string, pkg string, meta types.PackageMeta) error {
	if err := validateTarget(project, pkg); err != nil {
		return err
	}
	if meta.Name == "" {
		meta.Name = pkg
	}
	if meta.Project == "" {
		meta.Project = project
	}
	if meta.Name != pkg || meta.Project != project {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package meta names %s/%s, expected %s/%s", meta.Project, meta.Name, project, pkg))
	}
	_, err := c.sendXML(ctx, http.MethodPut, []string{"source", project, pkg, "_meta"}, nil, meta)
	return err
}

func (c *OBSClient) DeletePackage(ctx context.Context, project string, pkg string) error {
	if err := validateTarget(project, pkg); err != nil {
		return err
	}
	_, err := c.command(ctx, http.MethodDelete, []string{"source", project, pkg}, nil)
	return err
}

func (c *OBSClient) PackageMeta(ctx context.Context, project string, pkg string) (types.PackageMeta, error) {
	if err := validateTarget(project, pkg); err != nil {
		return types.PackageMeta{}, err
	}
	var meta types.PackageMeta
	if err := c.getXML(ctx, []string{"source", project, pkg, "_meta"}, nil, &meta); err != nil {
		return types.PackageMeta{}, err
	}
	return meta, nil
}

// ListSources lists the files of a package. An empty rev selects the latest
// revision.
func (c *OBSClient) ListSources(ctx context.Context, project string, pkg string, rev string) (types.SourceDirectory, error) {
	return c.listSources(ctx, project, pkg, rev, false)
}

// ListSourcesMeta lists the meta revision history instead of the sources.
func (c *OBSClient) ListSourcesMeta(ctx context.Context, project string, pkg string, rev string) (types.SourceDirectory, error) {
	return c.listSources(ctx, project, pkg, rev, true)
}

func (c *OBSClient) listSources(ctx context.Context, project string, pkg string, rev string, meta bool) (types.SourceDirectory, error) {
	if err := validateTarget(project, pkg); err != nil {
		return types.SourceDirectory{}, err
	}
	q := query{}.
		addIf(rev != "", "rev", rev).
		addIf(meta, "meta", "1")
	var dir types.SourceDirectory
	if err := c.getXML(ctx, []string{"source", project, pkg}, q, &dir); err != nil {
		return types.SourceDirectory{}, err
	}
	return dir, nil
}

func (c *OBSClient) Revisions(ctx context.Context, project string, pkg string) (types.RevisionList, error) {
	if err := validateTarget(project, pkg); err != nil {
		return types.RevisionList{}, err
	}
	var list types.RevisionList
	if err := c.getXML(ctx, []string{"source", project, pkg, "_history"}, nil, &list); err != nil {
		return types.RevisionList{}, err
	}
	return list, nil
}

// SourceFile streams a source file of the latest revision. The caller must
// close the returned reader.
func (c *OBSClient) SourceFile(ctx context.Context, project string, pkg string, file string) (io.ReadCloser, error) {
	if err := validateTarget(project, pkg); err != nil {
		return nil, err
	}
	if err := core.ValidateFileName(file); err != nil {
		return nil, err
	}
	resp, err := c.get(ctx, []string{"source", project, pkg, file}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// VerifiedSourceFile streams a source file and fails the final read with a
// checksum error when the content does not match md5 and size. A negative
// size skips the size check.
func (c *OBSClient) VerifiedSourceFile(ctx context.Context, project string, pkg string, file string, md5 string, size int64) (io.ReadCloser, error) {
	body, err := c.SourceFile(ctx, project, pkg, file)
	if err != nil {
		return nil, err
	}
	return verifiedReadCloser{
		VerifyingReader: core.NewVerifyingReader(body, md5, size),
		closer:          body,
	}, nil
}

type verifiedReadCloser struct {
	*core.VerifyingReader
	closer io.Closer
}

func (v verifiedReadCloser) Close() error {
	return v.closer.Close()
}

// UploadForCommit stores file content on the server without creating a new
// revision. A subsequent Commit references it by MD5.
func (c *OBSClient) UploadForCommit(ctx context.Context, project string, pkg string, file string, content io.Reader) error {
	if err := validateTarget(project, pkg); err != nil {
		return err
	}
	if err := core.ValidateFileName(file); err != nil {
		return err
	}
	resp, err := c.do(ctx, obsRequest{
		method:      http.MethodPut,
		path:        []string{"source", project, pkg, file},
		query:       query{}.add("rev", "repository"),
		body:        content,
		contentType: "application/octet-stream",
	})
	if err != nil {
		return err
	}
	_, err = readBody(resp)
	return err
}

// Commit creates a new revision from a file list. When the server lacks the
// content of some entries the result lists them instead.
func (c *OBSClient) Commit(ctx context.Context, project string, pkg string, files types.CommitFileList, opts types.CommitOptions) (types.CommitResult, error) {
	if err := validateTarget(project, pkg); err != nil {
		return types.CommitResult{}, err
	}
	for _, entry := range files.Entries {
		if err := core.ValidateFileName(entry.Name); err != nil {
			return types.CommitResult{}, err
		}
	}
	if files.Entries == nil {
		files.Entries = []types.CommitEntry{}
	}
	body, err := encodeXML(files)
	if err != nil {
		return types.CommitResult{}, err
	}
	q := query{}.
		add("cmd", "commitfilelist").
		addIf(opts.Comment != "", "comment", opts.Comment)
	resp, err := c.do(ctx, obsRequest{
		method:      http.MethodPost,
		path:        []string{"source", project, pkg},
		query:       q,
		body:        bytes.NewReader(body),
		contentType: "application/xml",
	})
	if err != nil {
		return types.CommitResult{}, err
	}
	data, err := readBody(resp)
	if err != nil {
		return types.CommitResult{}, err
	}
	result, err := decodeCommitResult(data)
	if err != nil {
		return types.CommitResult{}, annotate(err, resp)
	}
	return result, nil
}

// Branch branches a package. Without a target project OBS picks
// home:<user>:branches:<project>.
func (c *OBSClient) Branch(ctx context.Context, project string, pkg string, opts types.BranchOptions) (types.BranchStatus, error) {
	if err := validateTarget(project, pkg); err != nil {
		return types.BranchStatus{}, err
	}
	if opts.TargetProject != "" {
		if err := core.ValidateProjectName(opts.TargetProject); err != nil {
			return types.BranchStatus{}, err
		}
	}
	if opts.TargetPackage != "" {
		if err := core.ValidatePackageName(opts.TargetPackage); err != nil {
			return types.BranchStatus{}, err
		}
	}
	q := query{}.
		add("cmd", "branch").
		addIf(opts.TargetProject != "", "target_project", opts.TargetProject).
		addIf(opts.TargetPackage != "", "target_package", opts.TargetPackage).
		addIf(opts.Comment != "", "comment", opts.Comment).
		addIf(opts.AddRepositoriesRebuild != "", "add_repositories_rebuild", opts.AddRepositoriesRebuild.String()).
		addIf(opts.AddRepositoriesBlock != "", "add_repositories_block", opts.AddRepositoriesBlock.String()).
		addIf(opts.Force, "force", "1").
		addIf(opts.MissingOK, "missingok", "1")
	resp, err := c.do(ctx, obsRequest{method: http.MethodPost, path: []string{"source", project, pkg}, query: q})
	if err != nil {
		return types.BranchStatus{}, err
	}
	data, err := readBody(resp)
	if err != nil {
		return types.BranchStatus{}, err
	}
	status, err := decodeBranchStatus(data)
	if err != nil {
		return types.BranchStatus{}, annotate(err, resp)
	}
	return status, nil
}
