package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"obsctl/internal/app"
)

type logOptions struct {
	Offset        int64
	End           int64
	LastSucceeded bool
	Entry         bool
}

func newLogCommand() *cobra.Command {
	opts := logOptions{}
	cmd := &cobra.Command{
		Use:   "log <project> <package> <repository> <arch>",
		Short: "Print the build log of a package",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, args, opts)
		},
	}
	cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "Start at this byte offset")
	cmd.Flags().Int64Var(&opts.End, "end", 0, "Stop at this byte offset")
	cmd.Flags().BoolVar(&opts.LastSucceeded, "last-succeeded", false, "Show the log of the last successful build")
	cmd.Flags().BoolVar(&opts.Entry, "entry", false, "Only show size and modification time of the log")
	return cmd
}

func runLog(cmd *cobra.Command, args []string, opts logOptions) error {
	service := newAppService()
	req := app.LogRequest{
		Target:        target(cmd, args),
		Offset:        opts.Offset,
		End:           opts.End,
		LastSucceeded: opts.LastSucceeded,
		Out:           cmd.OutOrStdout(),
	}
	if !opts.Entry {
		_, err := service.Log(cmd.Context(), req)
		return err
	}
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	entry, err := service.LogEntry(cmd.Context(), req)
	if err != nil {
		return err
	}
	return out.print(entry, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "size %s, modified %s\n", humanSize(entry.Size), formatUnix(entry.MTime))
		return err
	})
}
