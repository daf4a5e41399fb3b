package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"obsctl/internal/core"
)

const defaultMonitorInterval = 20 * time.Second

// Monitor polls the build results of a package until every repository/arch
// pair reached a final code. It fails when a build failed or when the
// package is excluded or disabled everywhere.
func (s Service) Monitor(ctx context.Context, req MonitorRequest) (MonitorResult, error) {
	if req.Interval < 0 {
		return MonitorResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("monitor interval must not be negative")
	}
	interval := req.Interval
	if interval == 0 {
		interval = defaultMonitorInterval
	}
	obs, err := s.connectTarget(ctx, req.Target, needProject|needPackage)
	if err != nil {
		return MonitorResult{}, err
	}
	project, pkg := req.Target.Project, req.Target.Package
	log.Info().Str("project", project).Str("package", pkg).Msg("monitoring package")

	state := core.NewMonitorState(pkg)
	start := s.now()
	polls := 0
	for {
		results, err := obs.BuildResults(ctx, project, pkg)
		if err != nil {
			return MonitorResult{}, err
		}
		polls++
		for _, change := range state.Observe(results) {
			logChange(change)
			if req.OnChange != nil {
				req.OnChange(change)
			}
		}
		outcome := state.Outcome()
		if outcome == core.MonitorNoResults {
			return monitorResult(state, polls, s.now().Sub(start)), errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("no build results for %s/%s", project, pkg))
		}
		if outcome != core.MonitorRunning {
			result := monitorResult(state, polls, s.now().Sub(start))
			return result, monitorOutcomeError(result)
		}
		if err := s.sleep(ctx, interval); err != nil {
			return monitorResult(state, polls, s.now().Sub(start)), err
		}
	}
}

func monitorResult(state *core.MonitorState, polls int, elapsed time.Duration) MonitorResult {
	return MonitorResult{
		Outcome: state.Outcome(),
		Targets: state.Targets(),
		Failed:  state.FailedTargets(),
		Polls:   polls,
		Elapsed: elapsed,
	}
}

func monitorOutcomeError(result MonitorResult) error {
	switch result.Outcome {
	case core.MonitorAllExcluded:
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("package excluded/disabled on all repositories/architectures")
	case core.MonitorFailed:
		names := make([]string, 0, len(result.Failed))
		for _, target := range result.Failed {
			names = append(names, target.Repository+"/"+target.Arch)
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("build failure detected: " + strings.Join(names, ", "))
	default:
		return nil
	}
}

func logChange(change core.MonitorChange) {
	event := log.Info().
		Str("repository", change.Repository).
		Str("arch", change.Arch).
		Str("code", change.Code.String())
	if !change.New {
		event = event.Str("previous", change.Previous.String())
	}
	event.Msg("build state")
}
