package app

import (
	"context"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"obsctl/internal/types"
)

// Log copies a build log, or the selected byte range of it, to req.Out and
// returns the number of bytes written.
func (s Service) Log(ctx context.Context, req LogRequest) (int64, error) {
	if req.Out == nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("log output is required")
	}
	if req.Offset < 0 || req.End < 0 {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("log offsets must not be negative")
	}
	if req.End > 0 && req.End < req.Offset {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("log end must not be before the offset")
	}
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject|needPackage|needRepository|needArch)
	if err != nil {
		return 0, err
	}
	stream, err := obs.StreamLog(ctx, target.Project, target.Package, target.Repository, target.Arch, types.LogStreamOptions{
		Offset:        req.Offset,
		End:           req.End,
		LastSucceeded: req.LastSucceeded,
	})
	if err != nil {
		return 0, err
	}
	defer stream.Close()
	return io.Copy(req.Out, stream)
}

func (s Service) LogEntry(ctx context.Context, req LogRequest) (types.LogEntry, error) {
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject|needPackage|needRepository|needArch)
	if err != nil {
		return types.LogEntry{}, err
	}
	return obs.LogEntry(ctx, target.Project, target.Package, target.Repository, target.Arch, req.LastSucceeded)
}
