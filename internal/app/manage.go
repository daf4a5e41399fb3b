package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"obsctl/internal/types"
)

func (s Service) Branch(ctx context.Context, req BranchRequest) (types.BranchStatus, error) {
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject|needPackage)
	if err != nil {
		return types.BranchStatus{}, err
	}
	status, err := obs.Branch(ctx, target.Project, target.Package, req.Options)
	if err != nil {
		return types.BranchStatus{}, err
	}
	log.Info().
		Str("source", status.SourceProject+"/"+status.SourcePackage).
		Str("target", status.TargetProject+"/"+status.TargetPackage).
		Msg("branched")
	return status, nil
}

// Rebuild triggers a rebuild of a project, limited to req.Packages or to
// the package of the target when one is named.
func (s Service) Rebuild(ctx context.Context, req RebuildRequest) error {
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject)
	if err != nil {
		return err
	}
	filters := types.RebuildFilters{Packages: req.Packages}
	if target.Package != "" {
		filters.Packages = append([]string{target.Package}, filters.Packages...)
	}
	return obs.Rebuild(ctx, target.Project, filters)
}

// Create creates a package when one is named, otherwise a project.
func (s Service) Create(ctx context.Context, req CreateRequest) error {
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject)
	if err != nil {
		return err
	}
	if target.Package != "" {
		if len(req.Repositories) > 0 {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("repositories can only be set on projects")
		}
		return obs.SetPackageMeta(ctx, target.Project, target.Package, types.PackageMeta{
			Title:       req.Title,
			Description: req.Description,
		})
	}
	return obs.SetProjectMeta(ctx, target.Project, types.ProjectMeta{
		Title:        req.Title,
		Description:  req.Description,
		Repositories: req.Repositories,
	})
}

// Delete removes a package when one is named, otherwise a whole project.
func (s Service) Delete(ctx context.Context, req DeleteRequest) error {
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject)
	if err != nil {
		return err
	}
	if target.Package != "" {
		if req.Force {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("--force only applies to projects")
		}
		return obs.DeletePackage(ctx, target.Project, target.Package)
	}
	return obs.DeleteProject(ctx, target.Project, req.Force)
}
