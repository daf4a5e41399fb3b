package app

import (
	"context"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obsctl/internal/core"
	"obsctl/internal/obsmock"
	"obsctl/internal/types"
)

type monitorStep map[string]obsmock.BuildStatus

func setupMonitor(t *testing.T, steps []monitorStep) (Service, MonitorRequest, *[]core.MonitorChange) {
	t.Helper()
	mock, svc, conn := newTestService(t)
	mock.AddProject("devel")
	mock.AddOrUpdateRepository("devel", "repo", "x86_64", types.RepositoryCodeBuilding)
	mock.AddOrUpdateRepository("devel", "repo", "aarch64", types.RepositoryCodeBuilding)
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})

	apply := func(step monitorStep) {
		for arch, status := range step {
			mock.SetPackageBuildStatus("devel", "repo", arch, "hello", status)
		}
	}
	apply(steps[0])
	next := 1
	svc.Sleep = func(ctx context.Context, _ time.Duration) error {
		require.Less(t, next, len(steps), "monitor polled past the last step")
		apply(steps[next])
		next++
		return ctx.Err()
	}
	var changes []core.MonitorChange
	req := MonitorRequest{
		Target:   TargetRequest{Connection: conn, Project: "devel", Package: "hello"},
		Interval: time.Second,
		OnChange: func(change core.MonitorChange) { changes = append(changes, change) },
	}
	return svc, req, &changes
}

func TestMonitorSucceeds(t *testing.T) {
	svc, req, changes := setupMonitor(t, []monitorStep{
		{"x86_64": {Code: types.PackageCodeScheduled}, "aarch64": {Code: types.PackageCodeBuilding}},
		{"x86_64": {Code: types.PackageCodeSucceeded, Dirty: true}},
		{"x86_64": {Code: types.PackageCodeSucceeded}, "aarch64": {Code: types.PackageCodeSucceeded}},
	})
	result, err := svc.Monitor(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, core.MonitorSucceeded, result.Outcome)
	assert.Equal(t, 3, result.Polls)
	assert.Empty(t, result.Failed)

	want := []core.TargetState{
		{Repository: "repo", Arch: "aarch64", Code: types.PackageCodeSucceeded},
		{Repository: "repo", Arch: "x86_64", Code: types.PackageCodeSucceeded},
	}
	if diff := cmp.Diff(want, result.Targets); diff != "" {
		t.Fatalf("unexpected targets (-want +got):\n%s", diff)
	}
	// Two initial states, then one change per arch; the dirty poll is ignored.
	require.Len(t, *changes, 4)
	assert.True(t, (*changes)[0].New)
	assert.Equal(t, types.PackageCodeScheduled, (*changes)[len(*changes)-1].Previous)
}

func TestMonitorFailures(t *testing.T) {
	tests := []struct {
		name        string
		steps       []monitorStep
		wantOutcome core.MonitorOutcome
		wantFailed  int
	}{
		{
			name: "build failure",
			steps: []monitorStep{
				{"x86_64": {Code: types.PackageCodeFailed}, "aarch64": {Code: types.PackageCodeBuilding}},
				{"aarch64": {Code: types.PackageCodeSucceeded}},
			},
			wantOutcome: core.MonitorFailed,
			wantFailed:  1,
		},
		{
			name: "excluded everywhere",
			steps: []monitorStep{
				{"x86_64": {Code: types.PackageCodeExcluded}, "aarch64": {Code: types.PackageCodeDisabled}},
			},
			wantOutcome: core.MonitorAllExcluded,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, req, _ := setupMonitor(t, tt.steps)
			result, err := svc.Monitor(t.Context(), req)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Len(t, result.Failed, tt.wantFailed)
		})
	}
}

func TestMonitorWithoutResults(t *testing.T) {
	mock, svc, conn := newTestService(t)
	mock.AddProject("devel")
	mock.AddNewPackage("devel", "hello", obsmock.PackageOptions{})
	result, err := svc.Monitor(t.Context(), MonitorRequest{
		Target: TargetRequest{Connection: conn, Project: "devel", Package: "hello"},
	})
	require.Error(t, err)
	assert.Equal(t, core.MonitorNoResults, result.Outcome)
	assert.Equal(t, 1, result.Polls)
}

func TestMonitorValidatesRequest(t *testing.T) {
	_, svc, conn := newTestService(t)
	_, err := svc.Monitor(t.Context(), MonitorRequest{Target: TargetRequest{Connection: conn, Project: "devel"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = svc.Monitor(t.Context(), MonitorRequest{
		Target:   TargetRequest{Connection: conn, Project: "devel", Package: "hello"},
		Interval: -time.Second,
	})
	require.Error(t, err)
}

func TestMonitorStopsOnCancel(t *testing.T) {
	svc, req, _ := setupMonitor(t, []monitorStep{
		{"x86_64": {Code: types.PackageCodeBuilding}, "aarch64": {Code: types.PackageCodeBuilding}},
		{},
	})
	ctx, cancel := context.WithCancel(t.Context())
	sleep := svc.Sleep
	svc.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleep(ctx, d)
	}
	result, err := svc.Monitor(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, core.MonitorRunning, result.Outcome)
}
