package core

import (
	"sort"

	"obsctl/internal/types"
)

type MonitorOutcome string

const (
	MonitorRunning     MonitorOutcome = "running"
	MonitorSucceeded   MonitorOutcome = "succeeded"
	MonitorFailed      MonitorOutcome = "failed"
	MonitorAllExcluded MonitorOutcome = "all_excluded"
	MonitorNoResults   MonitorOutcome = "no_results"
)

// TargetState is the last known code of a package in one repository/arch.
type TargetState struct {
	Repository string
	Arch       string
	Code       types.PackageCode
}

// MonitorChange is emitted whenever a target is first seen or its code
// changes to something other than unknown.
type MonitorChange struct {
	TargetState
	Previous types.PackageCode
	New      bool
}

// MonitorState follows the build of a single package across every
// repository/arch pair of its project.
type MonitorState struct {
	pkg     string
	targets []TargetState
}

func NewMonitorState(pkg string) *MonitorState {
	return &MonitorState{pkg: pkg}
}

// Observe folds one poll of build results into the state and returns the
// changes it caused.
func (m *MonitorState) Observe(results types.ResultList) []MonitorChange {
	var changes []MonitorChange
	for _, result := range results.Results {
		code := m.codeFor(result)
		index := m.find(result.Repository, result.Arch)
		if index < 0 {
			state := TargetState{Repository: result.Repository, Arch: result.Arch, Code: code}
			m.targets = append(m.targets, state)
			changes = append(changes, MonitorChange{TargetState: state, New: true})
			continue
		}
		previous := m.targets[index].Code
		if code == types.PackageCodeUnknown || code == previous {
			continue
		}
		m.targets[index].Code = code
		changes = append(changes, MonitorChange{TargetState: m.targets[index], Previous: previous})
	}
	return changes
}

func (m *MonitorState) codeFor(result types.Result) types.PackageCode {
	if result.Dirty {
		return types.PackageCodeUnknown
	}
	status, ok := result.Status(m.pkg)
	if !ok {
		return types.PackageCodeUnknown
	}
	return status.EffectiveCode()
}

func (m *MonitorState) find(repository string, arch string) int {
	for i, target := range m.targets {
		if target.Repository == repository && target.Arch == arch {
			return i
		}
	}
	return -1
}

// Done reports whether every known target reached a final code.
func (m *MonitorState) Done() bool {
	if len(m.targets) == 0 {
		return false
	}
	for _, target := range m.targets {
		if !target.Code.IsFinal() {
			return false
		}
	}
	return true
}

// Outcome classifies the current state. Anything that is not Done is
// MonitorRunning.
func (m *MonitorState) Outcome() MonitorOutcome {
	if len(m.targets) == 0 {
		return MonitorNoResults
	}
	if !m.Done() {
		return MonitorRunning
	}
	allExcluded := true
	for _, target := range m.targets {
		if target.Code != types.PackageCodeExcluded && target.Code != types.PackageCodeDisabled {
			allExcluded = false
			break
		}
	}
	if allExcluded {
		return MonitorAllExcluded
	}
	for _, target := range m.targets {
		if target.Code == types.PackageCodeFailed {
			return MonitorFailed
		}
	}
	return MonitorSucceeded
}

// Targets returns a sorted copy of the tracked targets.
func (m *MonitorState) Targets() []TargetState {
	out := append([]TargetState(nil), m.targets...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Repository != out[j].Repository {
			return out[i].Repository < out[j].Repository
		}
		return out[i].Arch < out[j].Arch
	})
	return out
}

// FailedTargets lists the targets whose build failed.
func (m *MonitorState) FailedTargets() []TargetState {
	var failed []TargetState
	for _, target := range m.Targets() {
		if target.Code == types.PackageCodeFailed {
			failed = append(failed, target)
		}
	}
	return failed
}
