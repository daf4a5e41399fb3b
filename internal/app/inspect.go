package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"obsctl/internal/core"
	"obsctl/internal/ports"
	"obsctl/internal/types"
)

type targetNeeds int

const (
	needProject targetNeeds = 1 << iota
	needPackage
	needRepository
	needArch
)

func requireTarget(target TargetRequest, needs targetNeeds) error {
	missing := func(what string) error {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(what + " is required")
	}
	if needs&needProject != 0 && strings.TrimSpace(target.Project) == "" {
		return missing("project")
	}
	if needs&needPackage != 0 && strings.TrimSpace(target.Package) == "" {
		return missing("package")
	}
	if needs&needRepository != 0 && strings.TrimSpace(target.Repository) == "" {
		return missing("repository")
	}
	if needs&needArch != 0 && strings.TrimSpace(target.Arch) == "" {
		return missing("arch")
	}
	return nil
}

func (s Service) connectTarget(ctx context.Context, target TargetRequest, needs targetNeeds) (ports.OBSPort, error) {
	if err := requireTarget(target, needs); err != nil {
		return nil, err
	}
	return s.Connect(ctx, target.Connection)
}

func (s Service) ListProjects(ctx context.Context, conn ConnectionRequest) ([]string, error) {
	obs, err := s.Connect(ctx, conn)
	if err != nil {
		return nil, err
	}
	return obs.Projects(ctx)
}

func (s Service) ListPackages(ctx context.Context, req TargetRequest) ([]string, error) {
	obs, err := s.connectTarget(ctx, req, needProject)
	if err != nil {
		return nil, err
	}
	return obs.ListPackages(ctx, req.Project)
}

func (s Service) ListSources(ctx context.Context, req SourcesRequest) (types.SourceDirectory, error) {
	obs, err := s.connectTarget(ctx, req.Target, needProject|needPackage)
	if err != nil {
		return types.SourceDirectory{}, err
	}
	if req.Meta {
		return obs.ListSourcesMeta(ctx, req.Target.Project, req.Target.Package, req.Rev)
	}
	return obs.ListSources(ctx, req.Target.Project, req.Target.Package, req.Rev)
}

// Meta returns the package meta when a package is named, the project meta
// otherwise.
func (s Service) Meta(ctx context.Context, req TargetRequest) (MetaResult, error) {
	obs, err := s.connectTarget(ctx, req, needProject)
	if err != nil {
		return MetaResult{}, err
	}
	if req.Package != "" {
		meta, err := obs.PackageMeta(ctx, req.Project, req.Package)
		if err != nil {
			return MetaResult{}, err
		}
		return MetaResult{Package: &meta}, nil
	}
	meta, err := obs.ProjectMeta(ctx, req.Project)
	if err != nil {
		return MetaResult{}, err
	}
	return MetaResult{Project: &meta}, nil
}

func (s Service) Results(ctx context.Context, req TargetRequest) (types.ResultList, error) {
	obs, err := s.connectTarget(ctx, req, needProject)
	if err != nil {
		return types.ResultList{}, err
	}
	return obs.BuildResults(ctx, req.Project, req.Package)
}

func (s Service) Status(ctx context.Context, req TargetRequest) (types.BuildStatus, error) {
	obs, err := s.connectTarget(ctx, req, needProject|needPackage|needRepository|needArch)
	if err != nil {
		return types.BuildStatus{}, err
	}
	return obs.BuildStatus(ctx, req.Project, req.Package, req.Repository, req.Arch)
}

func (s Service) JobStatus(ctx context.Context, req TargetRequest) (types.JobStatus, error) {
	obs, err := s.connectTarget(ctx, req, needProject|needPackage|needRepository|needArch)
	if err != nil {
		return types.JobStatus{}, err
	}
	return obs.JobStatus(ctx, req.Project, req.Package, req.Repository, req.Arch)
}

// History returns the build history ordered from oldest to newest together
// with its latest entry.
func (s Service) History(ctx context.Context, req TargetRequest) (HistoryResult, error) {
	obs, err := s.connectTarget(ctx, req, needProject|needPackage|needRepository|needArch)
	if err != nil {
		return HistoryResult{}, err
	}
	history, err := obs.BuildHistory(ctx, req.Project, req.Package, req.Repository, req.Arch)
	if err != nil {
		return HistoryResult{}, err
	}
	result := HistoryResult{Entries: core.SortBuildHistory(history.Entries)}
	if latest, ok := core.LatestBuild(history.Entries); ok {
		result.Latest = &latest
	}
	return result, nil
}

func (s Service) JobHistory(ctx context.Context, req JobHistoryRequest) (types.JobHistList, error) {
	obs, err := s.connectTarget(ctx, req.Target, needProject|needRepository|needArch)
	if err != nil {
		return types.JobHistList{}, err
	}
	filters := req.Filters
	if req.Target.Package != "" && len(filters.Packages) == 0 {
		filters.Packages = []string{req.Target.Package}
	}
	if filters.Limit < 0 {
		return types.JobHistList{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("job history limit must not be negative")
	}
	return obs.JobHistory(ctx, req.Target.Project, req.Target.Repository, req.Target.Arch, filters)
}

func (s Service) Revisions(ctx context.Context, req TargetRequest) (types.RevisionList, error) {
	obs, err := s.connectTarget(ctx, req, needProject|needPackage)
	if err != nil {
		return types.RevisionList{}, err
	}
	return obs.Revisions(ctx, req.Project, req.Package)
}

func (s Service) Repositories(ctx context.Context, req TargetRequest) ([]string, error) {
	obs, err := s.connectTarget(ctx, req, needProject)
	if err != nil {
		return nil, err
	}
	return obs.Repositories(ctx, req.Project)
}

func (s Service) Arches(ctx context.Context, req TargetRequest) ([]string, error) {
	obs, err := s.connectTarget(ctx, req, needProject|needRepository)
	if err != nil {
		return nil, err
	}
	return obs.Arches(ctx, req.Project, req.Repository)
}
