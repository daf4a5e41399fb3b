package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"

	"obsctl/internal/app"
	"obsctl/internal/types"
)

func invalidArgument(msg string, cause error) error {
	err := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

type branchOptions struct {
	TargetProject string
	TargetPackage string
	Comment       string
	Force         bool
	MissingOK     bool
	Rebuild       string
	Block         string
}

func newBranchCommand() *cobra.Command {
	opts := branchOptions{}
	cmd := &cobra.Command{
		Use:   "branch <project> <package>",
		Short: "Branch a package into another project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranch(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.TargetProject, "target-project", "", "Target project (default: home:<user>:branches:<project>)")
	cmd.Flags().StringVar(&opts.TargetPackage, "target-package", "", "Target package name")
	cmd.Flags().StringVarP(&opts.Comment, "message", "m", "", "Branch comment")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing branch")
	cmd.Flags().BoolVar(&opts.MissingOK, "missing-ok", false, "Allow branching a package that does not exist yet")
	cmd.Flags().StringVar(&opts.Rebuild, "add-repositories-rebuild", "", "Rebuild mode of the repositories of a new target project")
	cmd.Flags().StringVar(&opts.Block, "add-repositories-block", "", "Block mode of the repositories of a new target project")
	return cmd
}

func runBranch(cmd *cobra.Command, args []string, opts branchOptions) error {
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	rebuild, err := types.ParseRebuildMode(opts.Rebuild)
	if err != nil {
		return invalidArgument("invalid --add-repositories-rebuild", err)
	}
	block, err := types.ParseBlockMode(opts.Block)
	if err != nil {
		return invalidArgument("invalid --add-repositories-block", err)
	}
	status, err := newAppService().Branch(cmd.Context(), app.BranchRequest{
		Target: target(cmd, args),
		Options: types.BranchOptions{
			TargetProject:          opts.TargetProject,
			TargetPackage:          opts.TargetPackage,
			Comment:                opts.Comment,
			Force:                  resolveBool(cmd, opts.Force, "branch_force", "force"),
			MissingOK:              opts.MissingOK,
			AddRepositoriesRebuild: rebuild,
			AddRepositoriesBlock:   block,
		},
	})
	if err != nil {
		return err
	}
	return out.print(status, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s/%s branched to %s/%s\n", status.SourceProject, status.SourcePackage, status.TargetProject, status.TargetPackage)
		return err
	})
}

type rebuildOptions struct {
	Packages []string
}

func newRebuildCommand() *cobra.Command {
	opts := rebuildOptions{}
	cmd := &cobra.Command{
		Use:   "rebuild <project> [package]",
		Short: "Trigger a rebuild of a project or package",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.RebuildRequest{
				Target:   target(cmd, args),
				Packages: resolveStrings(cmd, opts.Packages, "rebuild_packages", "package"),
			}
			if err := newAppService().Rebuild(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rebuild triggered")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.Packages, "package", nil, "Limit the rebuild to these packages")
	return cmd
}

type createOptions struct {
	Title       string
	Description string
	Repos       []string
	Paths       []string
	Rebuild     string
	Block       string
}

func newCreateCommand() *cobra.Command {
	opts := createOptions{}
	cmd := &cobra.Command{
		Use:   "create <project> [package]",
		Short: "Create a project or package",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, err := parseRepositories(opts)
			if err != nil {
				return err
			}
			req := app.CreateRequest{
				Target:       target(cmd, args),
				Title:        opts.Title,
				Description:  opts.Description,
				Repositories: repos,
			}
			if err := newAppService().Create(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "Title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Description")
	cmd.Flags().StringArrayVar(&opts.Repos, "repo", nil, "Repository as name:arch[,arch...] (projects only)")
	cmd.Flags().StringArrayVar(&opts.Paths, "path", nil, "Repository path as project/repository, added to every --repo")
	cmd.Flags().StringVar(&opts.Rebuild, "rebuild", "", "Rebuild mode of every --repo")
	cmd.Flags().StringVar(&opts.Block, "block", "", "Block mode of every --repo")
	return cmd
}

func parseRepositories(opts createOptions) ([]types.RepositoryMeta, error) {
	if len(opts.Repos) == 0 {
		if len(opts.Paths) > 0 || opts.Rebuild != "" || opts.Block != "" {
			return nil, invalidArgument("--path, --rebuild and --block need at least one --repo", nil)
		}
		return nil, nil
	}
	rebuild, err := types.ParseRebuildMode(opts.Rebuild)
	if err != nil {
		return nil, invalidArgument("invalid --rebuild", err)
	}
	block, err := types.ParseBlockMode(opts.Block)
	if err != nil {
		return nil, invalidArgument("invalid --block", err)
	}
	var paths []types.RepositoryPath
	for _, value := range opts.Paths {
		project, repo, ok := strings.Cut(value, "/")
		if !ok || project == "" || repo == "" {
			return nil, invalidArgument(fmt.Sprintf("invalid --path %q, expected project/repository", value), nil)
		}
		paths = append(paths, types.RepositoryPath{Project: project, Repository: repo})
	}
	repos := make([]types.RepositoryMeta, 0, len(opts.Repos))
	for _, value := range opts.Repos {
		name, archList, ok := strings.Cut(value, ":")
		if !ok || name == "" || archList == "" {
			return nil, invalidArgument(fmt.Sprintf("invalid --repo %q, expected name:arch[,arch...]", value), nil)
		}
		repos = append(repos, types.RepositoryMeta{
			Name:    name,
			Rebuild: rebuild,
			Block:   block,
			Paths:   paths,
			Arches:  strings.Split(archList, ","),
		})
	}
	return repos, nil
}

type deleteOptions struct {
	Force bool
}

func newDeleteCommand() *cobra.Command {
	opts := deleteOptions{}
	cmd := &cobra.Command{
		Use:   "delete <project> [package]",
		Short: "Delete a package, or a whole project",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.DeleteRequest{Target: target(cmd, args), Force: opts.Force}
			if err := newAppService().Delete(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Delete a project even if other projects depend on it")
	return cmd
}
