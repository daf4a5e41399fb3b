package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"obsctl/internal/app"
)

type transferOptions struct {
	Dir     string
	Workers int
	Archive string
	Comment string
}

func newDownloadCommand() *cobra.Command {
	opts := transferOptions{}
	cmd := &cobra.Command{
		Use:   "download <project> <package>",
		Short: "Download the sources of a package, verifying their checksums",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			req := target(cmd, args)
			dir := opts.Dir
			if dir == "" {
				dir = req.Package
			}
			result, err := newAppService().DownloadSources(cmd.Context(), app.DownloadSourcesRequest{
				Target:  req,
				Dir:     dir,
				Workers: resolveInt(cmd, opts.Workers, "workers", "workers"),
			})
			if err != nil {
				return err
			}
			return out.print(result, downloadSummary(result))
		},
	}
	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", "", "Target directory (default: the package name)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Parallel downloads")
	return cmd
}

func newBinariesCommand() *cobra.Command {
	opts := transferOptions{}
	cmd := &cobra.Command{
		Use:   "binaries <project> <package> <repository> <arch>",
		Short: "Download the build results of a package",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			result, err := newAppService().DownloadBinaries(cmd.Context(), app.DownloadBinariesRequest{
				Target:  target(cmd, args),
				Dir:     opts.Dir,
				Workers: resolveInt(cmd, opts.Workers, "workers", "workers"),
				Archive: opts.Archive,
			})
			if err != nil {
				return err
			}
			return out.print(result, downloadSummary(result))
		},
	}
	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", "binaries", "Target directory")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Parallel downloads")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "Also pack the binaries into this .tar.zst file")
	return cmd
}

func downloadSummary(result app.DownloadResult) textFormatter {
	return func(w io.Writer) error {
		table := newTable("FILE", "SIZE", "MD5")
		var total int64
		for _, file := range result.Files {
			table.AddRow(file.Name, humanSize(file.Size), file.MD5)
			total += file.Size
		}
		if err := writeTable(w, table); err != nil {
			return err
		}
		fmt.Fprintf(w, "%d files, %s in %s\n", len(result.Files), humanSize(total), result.Dir)
		if result.Archive != "" {
			fmt.Fprintf(w, "archive: %s\n", result.Archive)
		}
		return nil
	}
}

func newCommitCommand() *cobra.Command {
	opts := transferOptions{}
	cmd := &cobra.Command{
		Use:   "commit <project> <package>",
		Short: "Commit the files of a directory as the new sources of a package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			result, err := newAppService().CommitDirectory(cmd.Context(), app.CommitDirectoryRequest{
				Target:  target(cmd, args),
				Dir:     opts.Dir,
				Comment: opts.Comment,
				Workers: resolveInt(cmd, opts.Workers, "workers", "workers"),
			})
			if err != nil {
				return err
			}
			return out.print(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "committed revision %s (%d files, %d uploaded)\n", result.Rev, result.Files, len(result.Uploaded))
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", ".", "Directory holding the sources")
	cmd.Flags().StringVarP(&opts.Comment, "message", "m", "", "Commit message")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Parallel uploads")
	return cmd
}
