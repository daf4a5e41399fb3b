package adapters

import (
	"context"
	"io"
	"strconv"

	"obsctl/internal/types"
)

// LogEntry returns the size and modification time of the latest build log,
// or of the last successful one.
func (c *OBSClient) LogEntry(ctx context.Context, project string, pkg string, repository string, arch string, lastSucceeded bool) (types.LogEntry, error) {
	if err := validateBuildTarget(project, pkg, repository, arch); err != nil {
		return types.LogEntry{}, err
	}
	q := query{}.
		add("view", "entry").
		addIf(lastSucceeded, "lastsucceeded", "1")
	resp, err := c.get(ctx, buildLogPath(project, pkg, repository, arch), q)
	if err != nil {
		return types.LogEntry{}, err
	}
	data, err := readBody(resp)
	if err != nil {
		return types.LogEntry{}, err
	}
	entry, err := decodeLogEntry(data)
	if err != nil {
		return types.LogEntry{}, annotate(err, resp)
	}
	return entry, nil
}

// StreamLog reads a build log in chunks. Each request asks for the bytes
// after what was already read, until the server returns nothing or the
// requested end is reached.
func (c *OBSClient) StreamLog(ctx context.Context, project string, pkg string, repository string, arch string, opts types.LogStreamOptions) (io.ReadCloser, error) {
	if err := validateBuildTarget(project, pkg, repository, arch); err != nil {
		return nil, err
	}
	return &buildLogStream{
		ctx:    ctx,
		client: c,
		path:   buildLogPath(project, pkg, repository, arch),
		opts:   opts,
		offset: opts.Offset,
	}, nil
}

func buildLogPath(project string, pkg string, repository string, arch string) []string {
	return []string{"build", project, repository, arch, pkg, "_log"}
}

type buildLogStream struct {
	ctx       context.Context
	client    *OBSClient
	path      []string
	opts      types.LogStreamOptions
	offset    int64
	current   io.ReadCloser
	chunkRead int64
	done      bool
}

func (s *buildLogStream) query() query {
	return query{}.
		add("nostream", "1").
		add("start", strconv.FormatInt(s.offset, 10)).
		addIf(s.opts.End > 0, "end", strconv.FormatInt(s.opts.End, 10)).
		addIf(s.opts.LastSucceeded, "lastsucceeded", "1")
}

func (s *buildLogStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if s.done {
			return 0, io.EOF
		}
		if s.current == nil {
			if s.opts.End > 0 && s.offset >= s.opts.End {
				s.done = true
				return 0, io.EOF
			}
			resp, err := s.client.get(s.ctx, s.path, s.query())
			if err != nil {
				return 0, err
			}
			s.current = resp.Body
			s.chunkRead = 0
		}
		n, err := s.current.Read(p)
		s.offset += int64(n)
		s.chunkRead += int64(n)
		switch {
		case err == io.EOF:
			s.current.Close()
			s.current = nil
			if s.chunkRead == 0 {
				s.done = true
			}
			if n > 0 {
				return n, nil
			}
		case err != nil:
			return n, &types.OBSError{Kind: types.ErrorKindTransport, Cause: err}
		case n > 0:
			return n, nil
		}
	}
}

func (s *buildLogStream) Close() error {
	s.done = true
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}
