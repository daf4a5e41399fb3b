package adapters

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"obsctl/internal/core"
	"obsctl/internal/types"
)

func validateBuildTarget(project string, pkg string, repository string, arch string) error {
	if err := validateTarget(project, pkg); err != nil {
		return err
	}
	if repository == "" || arch == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository and architecture are required")
	}
	return nil
}

// BuildResults returns the build results of a project, limited to one
// package when pkg is set.
func (c *OBSClient) BuildResults(ctx context.Context, project string, pkg string) (types.ResultList, error) {
	if err := validateTarget(project, pkg); err != nil {
		return types.ResultList{}, err
	}
	var results types.ResultList
	q := query{}.addIf(pkg != "", "package", pkg)
	if err := c.getXML(ctx, []string{"build", project, "_result"}, q, &results); err != nil {
		return types.ResultList{}, err
	}
	return results, nil
}

func (c *OBSClient) Repositories(ctx context.Context, project string) ([]string, error) {
	if err := validateTarget(project, ""); err != nil {
		return nil, err
	}
	var dir types.Directory
	if err := c.getXML(ctx, []string{"build", project}, nil, &dir); err != nil {
		return nil, err
	}
	return dir.Names(), nil
}

func (c *OBSClient) Arches(ctx context.Context, project string, repository string) ([]string, error) {
	if err := validateTarget(project, ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(repository) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository is required")
	}
	var dir types.Directory
	if err := c.getXML(ctx, []string{"build", project, repository}, nil, &dir); err != nil {
		return nil, err
	}
	return dir.Names(), nil
}

// Rebuild triggers a rebuild of the filtered packages in every repository
// and architecture of the project.
func (c *OBSClient) Rebuild(ctx context.Context, project string, filters types.RebuildFilters) error {
	if err := validateTarget(project, ""); err != nil {
		return err
	}
	q := query{}.add("cmd", "rebuild")
	for _, pkg := range filters.Packages {
		if err := core.ValidatePackageName(pkg); err != nil {
			return err
		}
		q = q.add("package", pkg)
	}
	_, err := c.command(ctx, http.MethodPost, []string{"build", project}, q)
	return err
}

func (c *OBSClient) JobHistory(ctx context.Context, project string, repository string, arch string, filters types.JobHistoryFilters) (types.JobHistList, error) {
	if err := validateBuildTarget(project, "", repository, arch); err != nil {
		return types.JobHistList{}, err
	}
	q := query{}
	for _, pkg := range filters.Packages {
		q = q.add("package", pkg)
	}
	for _, code := range filters.Codes {
		q = q.add("code", code.String())
	}
	q = q.addIf(filters.Limit > 0, "limit", strconv.Itoa(filters.Limit))
	var list types.JobHistList
	if err := c.getXML(ctx, []string{"build", project, repository, arch, "_jobhistory"}, q, &list); err != nil {
		return types.JobHistList{}, err
	}
	return list, nil
}

func (c *OBSClient) JobStatus(ctx context.Context, project string, pkg string, repository string, arch string) (types.JobStatus, error) {
	var status types.JobStatus
	if err := c.getPackageBuildXML(ctx, project, pkg, repository, arch, "_jobstatus", &status); err != nil {
		return types.JobStatus{}, err
	}
	return status, nil
}

func (c *OBSClient) BuildHistory(ctx context.Context, project string, pkg string, repository string, arch string) (types.BuildHistory, error) {
	var history types.BuildHistory
	if err := c.getPackageBuildXML(ctx, project, pkg, repository, arch, "_history", &history); err != nil {
		return types.BuildHistory{}, err
	}
	return history, nil
}

func (c *OBSClient) BuildStatus(ctx context.Context, project string, pkg string, repository string, arch string) (types.BuildStatus, error) {
	var status types.BuildStatus
	if err := c.getPackageBuildXML(ctx, project, pkg, repository, arch, "_status", &status); err != nil {
		return types.BuildStatus{}, err
	}
	return status, nil
}

func (c *OBSClient) Binaries(ctx context.Context, project string, pkg string, repository string, arch string) (types.BinaryList, error) {
	if err := validateBuildTarget(project, pkg, repository, arch); err != nil {
		return types.BinaryList{}, err
	}
	var list types.BinaryList
	if err := c.getXML(ctx, []string{"build", project, repository, arch, pkg}, nil, &list); err != nil {
		return types.BinaryList{}, err
	}
	return list, nil
}

// BinaryFile streams one build result file. The caller must close the
// returned reader.
func (c *OBSClient) BinaryFile(ctx context.Context, project string, pkg string, repository string, arch string, name string) (io.ReadCloser, error) {
	if err := validateBuildTarget(project, pkg, repository, arch); err != nil {
		return nil, err
	}
	if err := core.ValidateFileName(name); err != nil {
		return nil, err
	}
	resp, err := c.get(ctx, []string{"build", project, repository, arch, pkg, name}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *OBSClient) getPackageBuildXML(ctx context.Context, project string, pkg string, repository string, arch string, resource string, v any) error {
	if err := validateBuildTarget(project, pkg, repository, arch); err != nil {
		return err
	}
	return c.getXML(ctx, []string{"build", project, repository, arch, pkg, resource}, nil, v)
}
