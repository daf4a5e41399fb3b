package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"obsctl/internal/app"
	"obsctl/internal/core"
	"obsctl/internal/types"
)

type monitorOptions struct {
	IntervalSec int
}

func newMonitorCommand() *cobra.Command {
	opts := monitorOptions{}
	cmd := &cobra.Command{
		Use:   "monitor <project> <package>",
		Short: "Follow the build of a package until every repository finished",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.IntervalSec, "interval", 20, "Seconds between polls")
	return cmd
}

func runMonitor(cmd *cobra.Command, args []string, opts monitorOptions) error {
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	req := target(cmd, args)
	fmt.Fprintf(w, "Monitoring package: %s  project: %s\n", req.Package, req.Project)
	result, runErr := newAppService().Monitor(cmd.Context(), app.MonitorRequest{
		Target:   req,
		Interval: time.Duration(resolveInt(cmd, opts.IntervalSec, "monitor_interval", "interval")) * time.Second,
		OnChange: func(change core.MonitorChange) {
			if out.format == types.OutputFormatYAML {
				return
			}
			prefix := "*"
			if !change.New {
				prefix = " *"
			}
			fmt.Fprintf(w, "%s %s %s => %s\n", prefix, change.Repository, change.Arch, colorPackageCode(change.Code))
		},
	})
	if result.Polls > 0 {
		if err := out.print(result, monitorSummary(result)); err != nil {
			return err
		}
	}
	return runErr
}

func monitorSummary(result app.MonitorResult) textFormatter {
	return func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s after %d polls\n", result.Outcome, result.Polls)
		return err
	}
}
