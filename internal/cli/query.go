package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"obsctl/internal/app"
	"obsctl/internal/types"
)

func newProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			projects, err := newAppService().ListProjects(cmd.Context(), connectionRequest(cmd))
			if err != nil {
				return err
			}
			return out.print(projects, printLines(projects))
		},
	}
}

type listOptions struct {
	Rev  string
	Meta bool
}

func newListCommand() *cobra.Command {
	opts := listOptions{}
	cmd := &cobra.Command{
		Use:   "list <project> [package]",
		Short: "List the packages of a project or the sources of a package",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Rev, "rev", "r", "", "Source revision")
	cmd.Flags().BoolVar(&opts.Meta, "meta", false, "List meta revisions instead of sources")
	return cmd
}

func runList(cmd *cobra.Command, args []string, opts listOptions) error {
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	service := newAppService()
	req := target(cmd, args)
	if req.Package == "" {
		packages, err := service.ListPackages(cmd.Context(), req)
		if err != nil {
			return err
		}
		return out.print(packages, printLines(packages))
	}
	listing, err := service.ListSources(cmd.Context(), app.SourcesRequest{Target: req, Rev: opts.Rev, Meta: opts.Meta})
	if err != nil {
		return err
	}
	return out.print(listing, func(w io.Writer) error {
		fmt.Fprintf(w, "%s rev %s (srcmd5 %s)\n", listing.Name, listing.Rev, listing.SrcMD5)
		for _, link := range listing.LinkInfo {
			fmt.Fprintf(w, "links to %s/%s\n", link.Project, link.Package)
		}
		table := newTable("NAME", "MD5", "SIZE", "MTIME")
		for _, entry := range listing.Entries {
			table.AddRow(entry.Name, entry.MD5, humanSize(entry.Size), formatUnix(entry.MTime))
		}
		return writeTable(w, table)
	})
}

func newMetaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <project> [package]",
		Short: "Show the meta of a project or package",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			meta, err := newAppService().Meta(cmd.Context(), target(cmd, args))
			if err != nil {
				return err
			}
			return out.print(meta, func(w io.Writer) error {
				if meta.Package != nil {
					return printPackageMeta(w, *meta.Package)
				}
				return printProjectMeta(w, *meta.Project)
			})
		},
	}
}

func printProjectMeta(w io.Writer, meta types.ProjectMeta) error {
	fmt.Fprintf(w, "project: %s\n", meta.Name)
	if meta.Title != "" {
		fmt.Fprintf(w, "title:   %s\n", meta.Title)
	}
	table := newTable("REPOSITORY", "ARCHES", "REBUILD", "BLOCK", "PATHS")
	for _, repo := range meta.Repositories {
		paths := make([]string, 0, len(repo.Paths))
		for _, path := range repo.Paths {
			paths = append(paths, path.Project+"/"+path.Repository)
		}
		table.AddRow(repo.Name, strings.Join(repo.Arches, " "), repo.Rebuild.OrDefault(), repo.Block.OrDefault(), strings.Join(paths, " "))
	}
	return writeTable(w, table)
}

func printPackageMeta(w io.Writer, meta types.PackageMeta) error {
	fmt.Fprintf(w, "package: %s/%s\n", meta.Project, meta.Name)
	if meta.Title != "" {
		fmt.Fprintf(w, "title:   %s\n", meta.Title)
	}
	for _, flag := range meta.DisabledBuilds() {
		fmt.Fprintf(w, "disabled: repository=%q arch=%q\n", flag.Repository, flag.Arch)
	}
	return nil
}

func newResultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "result <project> [package]",
		Short: "Show build results per repository and architecture",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			results, err := newAppService().Results(cmd.Context(), target(cmd, args))
			if err != nil {
				return err
			}
			return out.print(results, func(w io.Writer) error {
				table := newTable("REPOSITORY", "ARCH", "STATE", "PACKAGE", "CODE")
				for _, result := range results.Results {
					state := result.Code.String()
					if result.Dirty {
						state += " (dirty)"
					}
					if len(result.Statuses) == 0 {
						table.AddRow(result.Repository, result.Arch, state, "-", "-")
					}
					for _, status := range result.Statuses {
						table.AddRow(result.Repository, result.Arch, state, status.Package, colorPackageCode(status.EffectiveCode()))
					}
				}
				return writeTable(w, table)
			})
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <project> <package> <repository> <arch>",
		Short: "Show the build status of a package",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			status, err := newAppService().Status(cmd.Context(), target(cmd, args))
			if err != nil {
				return err
			}
			return out.print(status, func(w io.Writer) error {
				fmt.Fprintf(w, "%s: %s\n", status.Package, colorPackageCode(status.Code))
				if status.Details != "" {
					fmt.Fprintf(w, "details: %s\n", status.Details)
				}
				return nil
			})
		},
	}
}

func newJobStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "jobstatus <project> <package> <repository> <arch>",
		Short: "Show the running build job of a package",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			status, err := newAppService().JobStatus(cmd.Context(), target(cmd, args))
			if err != nil {
				return err
			}
			return out.print(status, func(w io.Writer) error {
				if status.Idle() {
					_, err := fmt.Fprintln(w, "no job")
					return err
				}
				table := newTable("CODE", "WORKER", "STARTED", "DETAILS")
				table.AddRow(status.Code.String(), status.WorkerID, formatUnix(status.StartTime), status.Details)
				return writeTable(w, table)
			})
		},
	}
}

type historyOptions struct {
	Latest bool
}

func newHistoryCommand() *cobra.Command {
	opts := historyOptions{}
	cmd := &cobra.Command{
		Use:   "history <project> <package> <repository> <arch>",
		Short: "Show the build history of a package",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			history, err := newAppService().History(cmd.Context(), target(cmd, args))
			if err != nil {
				return err
			}
			entries := history.Entries
			if resolveBool(cmd, opts.Latest, "history_latest", "latest") {
				entries = nil
				if history.Latest != nil {
					entries = []types.BuildHistoryEntry{*history.Latest}
				}
			}
			return out.print(entries, func(w io.Writer) error {
				table := newTable("REV", "VERSREL", "BCNT", "TIME", "DURATION", "SRCMD5")
				for _, entry := range entries {
					table.AddRow(entry.Rev, entry.VersRel, entry.BCnt, formatUnix(entry.Time), strconv.FormatInt(entry.Duration, 10)+"s", entry.SrcMD5)
				}
				return writeTable(w, table)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "Only show the newest build")
	return cmd
}

type jobHistoryOptions struct {
	Packages []string
	Codes    []string
	Limit    int
}

func newJobHistoryCommand() *cobra.Command {
	opts := jobHistoryOptions{}
	cmd := &cobra.Command{
		Use:   "jobhistory <project> <repository> <arch>",
		Short: "Show the finished build jobs of a repository",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobHistory(cmd, args, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Packages, "package", nil, "Only jobs of these packages")
	cmd.Flags().StringSliceVar(&opts.Codes, "code", nil, "Only jobs that ended with these codes")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of jobs, newest first")
	return cmd
}

func runJobHistory(cmd *cobra.Command, args []string, opts jobHistoryOptions) error {
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	req := app.TargetRequest{Connection: connectionRequest(cmd), Project: args[0], Repository: args[1], Arch: args[2]}
	filters := types.JobHistoryFilters{
		Packages: resolveStrings(cmd, opts.Packages, "jobhistory_packages", "package"),
		Limit:    resolveInt(cmd, opts.Limit, "jobhistory_limit", "limit"),
	}
	for _, value := range opts.Codes {
		code, err := types.ParsePackageCode(value)
		if err != nil || code == "" {
			return invalidArgument(fmt.Sprintf("invalid --code %q", value), err)
		}
		filters.Codes = append(filters.Codes, code)
	}
	jobs, err := newAppService().JobHistory(cmd.Context(), app.JobHistoryRequest{Target: req, Filters: filters})
	if err != nil {
		return err
	}
	return out.print(jobs.Jobs, func(w io.Writer) error {
		table := newTable("PACKAGE", "CODE", "VERSREL", "STARTED", "DURATION", "WORKER", "REASON")
		for _, job := range jobs.Jobs {
			table.AddRow(job.Package, colorPackageCode(job.Code), job.VersRel, formatUnix(job.StartTime), job.Duration(), job.WorkerID, job.Reason)
		}
		return writeTable(w, table)
	})
}

func newRevisionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <project> <package>",
		Short: "Show the commit log of a package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			revisions, err := newAppService().Revisions(cmd.Context(), target(cmd, args))
			if err != nil {
				return err
			}
			return out.print(revisions, func(w io.Writer) error {
				table := newTable("REV", "VREV", "TIME", "USER", "COMMENT")
				for _, rev := range revisions.Revisions {
					table.AddRow(rev.Rev, rev.VRev, formatUnix(rev.Time), rev.User, rev.Comment)
				}
				return writeTable(w, table)
			})
		},
	}
}

func newReposCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repos <project> [repository]",
		Short: "List the repositories of a project or the architectures of a repository",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			service := newAppService()
			req := app.TargetRequest{Connection: connectionRequest(cmd), Project: args[0]}
			var names []string
			if len(args) == 2 {
				req.Repository = args[1]
				names, err = service.Arches(cmd.Context(), req)
			} else {
				names, err = service.Repositories(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			return out.print(names, printLines(names))
		},
	}
}
