package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"obsctl/internal/adapters"
	"obsctl/internal/app"
	"obsctl/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "OBSCTL"

type RootConfig struct {
	ConfigFile   string
	LogLevel     string
	APIURL       string
	Oscrc        string
	User         string
	Pass         string
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
	RateLimit    float64
	Format       string
	MetricsFile  string
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, newRootCommand())
	stop()
	if err != nil {
		os.Exit(exitCodeForError(err))
	}
}

// run executes the command tree and writes --metrics-file afterwards, also
// when the command failed.
func run(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if metricsErr := writeMetricsFile(viper.GetString("metrics_file")); metricsErr != nil {
		if err == nil {
			return metricsErr
		}
		log.Error().Err(metricsErr).Msg("metrics file not written")
	}
	return err
}

func writeMetricsFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := adapters.WriteMetrics(path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics file").
			WithCause(err)
	}
	return nil
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:          "obsctl",
		Short:        "Command line client for the Open Build Service",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.StringVarP(&cfg.APIURL, "apiurl", "A", "", "Build service API url or oscrc alias")
	flags.StringVar(&cfg.Oscrc, "oscrc", "", "oscrc file with stored credentials")
	flags.StringVarP(&cfg.User, "user", "u", "", "User name (requires --pass)")
	flags.StringVarP(&cfg.Pass, "pass", "p", "", "Password (requires --user)")
	flags.IntVar(&cfg.TimeoutSec, "timeout", 60, "Request timeout in seconds")
	flags.IntVar(&cfg.Retries, "retries", 3, "Attempts for read requests")
	flags.IntVar(&cfg.RetryDelayMs, "retry-delay-ms", 200, "Initial delay between read attempts in milliseconds")
	flags.Float64Var(&cfg.RateLimit, "rate-limit", 0, "Maximum requests per second, 0 for unlimited")
	flags.StringVarP(&cfg.Format, "format", "o", "text", "Output format (text|yaml)")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write request metrics in Prometheus text format to this file")
	bindings := map[string]string{
		"log_level":      "log-level",
		"apiurl":         "apiurl",
		"oscrc":          "oscrc",
		"user":           "user",
		"pass":           "pass",
		"timeout":        "timeout",
		"retries":        "retries",
		"retry_delay_ms": "retry-delay-ms",
		"rate_limit":     "rate-limit",
		"format":         "format",
		"metrics_file":   "metrics-file",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(newMonitorCommand())
	cmd.AddCommand(newProjectsCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newMetaCommand())
	cmd.AddCommand(newResultCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newJobStatusCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newJobHistoryCommand())
	cmd.AddCommand(newRevisionsCommand())
	cmd.AddCommand(newReposCommand())
	cmd.AddCommand(newLogCommand())
	cmd.AddCommand(newDownloadCommand())
	cmd.AddCommand(newBinariesCommand())
	cmd.AddCommand(newCommitCommand())
	cmd.AddCommand(newBranchCommand())
	cmd.AddCommand(newRebuildCommand())
	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newDeleteCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("obsctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/obsctl")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func newAppService() app.Service {
	return app.NewService()
}

func exitCodeForError(err error) int {
	if kind, ok := types.ErrorKindOf(err); ok {
		switch kind {
		case types.ErrorKindTransport, types.ErrorKindDecode, types.ErrorKindChecksum, types.ErrorKindUnexpected:
			return 6
		case types.ErrorKindHTTP:
			if status := types.StatusCodeOf(err); status >= 500 || status == http.StatusTooManyRequests {
				return 6
			}
		}
	}
	switch types.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}
