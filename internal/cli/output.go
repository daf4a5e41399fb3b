package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"obsctl/internal/types"
)

type textFormatter func(w io.Writer) error

type printer struct {
	out    io.Writer
	format types.OutputFormat
}

func newPrinter(cmd *cobra.Command) (printer, error) {
	value := viper.GetString("format")
	if flag := cmd.Flags().Lookup("format"); flag != nil && flag.Changed {
		value = flag.Value.String()
	}
	format, err := types.ParseOutputFormat(value)
	if err != nil {
		return printer{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid --format").
			WithCause(err)
	}
	return printer{out: cmd.OutOrStdout(), format: format}, nil
}

// print writes data as yaml, or through text in the default format.
func (p printer) print(data any, text textFormatter) error {
	if p.format == types.OutputFormatYAML {
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode yaml output").
				WithCause(err)
		}
		return enc.Close()
	}
	return text(p.out)
}

func printLines(lines []string) textFormatter {
	return func(w io.Writer) error {
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}

func newTable(header ...any) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	if len(header) > 0 {
		bold := color.New(color.Bold)
		cells := make([]any, len(header))
		for i, cell := range header {
			cells[i] = bold.Sprint(cell)
		}
		table.AddRow(cells...)
	}
	return table
}

func writeTable(w io.Writer, table *uitable.Table) error {
	_, err := fmt.Fprintln(w, table)
	return err
}

func colorPackageCode(code types.PackageCode) string {
	switch code {
	case types.PackageCodeSucceeded:
		return color.GreenString(code.String())
	case types.PackageCodeFailed, types.PackageCodeBroken, types.PackageCodeUnresolvable:
		return color.RedString(code.String())
	case types.PackageCodeBuilding, types.PackageCodeScheduled, types.PackageCodeDispatching,
		types.PackageCodeFinished, types.PackageCodeBlocked:
		return color.YellowString(code.String())
	case types.PackageCodeExcluded, types.PackageCodeDisabled, types.PackageCodeLocked:
		return color.HiBlackString(code.String())
	default:
		return code.String()
	}
}

func humanSize(size int64) string {
	return units.HumanSize(float64(size))
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
