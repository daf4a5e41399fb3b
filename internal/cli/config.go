package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"obsctl/internal/app"
)

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func resolveFloat(cmd *cobra.Command, value float64, key string, flagName string) float64 {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetFloat64(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}

// connectionRequest collects the persistent connection flags of the root
// command, falling back to config and environment.
func connectionRequest(cmd *cobra.Command) app.ConnectionRequest {
	lookup := func(flagName string, key string) string {
		value := ""
		if cmd != nil {
			if flag := cmd.Flags().Lookup(flagName); flag != nil {
				value = flag.Value.String()
			}
		}
		return resolveString(cmd, value, key, flagName)
	}
	intFlag := func(flagName string, key string) int {
		value := 0
		if cmd != nil {
			if v, err := cmd.Flags().GetInt(flagName); err == nil {
				value = v
			}
		}
		return resolveInt(cmd, value, key, flagName)
	}
	rate := 0.0
	if cmd != nil {
		if v, err := cmd.Flags().GetFloat64("rate-limit"); err == nil {
			rate = v
		}
	}
	return app.ConnectionRequest{
		APIURL:            lookup("apiurl", "apiurl"),
		OscrcPath:         lookup("oscrc", "oscrc"),
		Username:          lookup("user", "user"),
		Password:          lookup("pass", "pass"),
		Timeout:           time.Duration(intFlag("timeout", "timeout")) * time.Second,
		Retries:           intFlag("retries", "retries"),
		RetryDelay:        time.Duration(intFlag("retry-delay-ms", "retry_delay_ms")) * time.Millisecond,
		RequestsPerSecond: resolveFloat(cmd, rate, "rate_limit", "rate-limit"),
	}
}

// target builds a TargetRequest from positional arguments in the order
// project, package, repository, arch.
func target(cmd *cobra.Command, args []string) app.TargetRequest {
	req := app.TargetRequest{Connection: connectionRequest(cmd)}
	fields := []*string{&req.Project, &req.Package, &req.Repository, &req.Arch}
	for i, arg := range args {
		if i >= len(fields) {
			break
		}
		*fields[i] = strings.TrimSpace(arg)
	}
	return req
}
