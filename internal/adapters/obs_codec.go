package adapters

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"obsctl/internal/types"
)

func decodeError(cause error) *types.OBSError {
	return &types.OBSError{Kind: types.ErrorKindDecode, Cause: cause}
}

// decodeXML unmarshals an OBS document. Every failure, including an empty
// body or a wrong root element, is reported as a decode OBSError.
func decodeXML(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return decodeError(errors.New("empty response body"))
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return decodeError(err)
	}
	return nil
}

func encodeXML(v any) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, &types.OBSError{Kind: types.ErrorKindDecode, Cause: fmt.Errorf("encode request: %w", err)}
	}
	return append([]byte(xml.Header), data...), nil
}

type commitReply struct {
	XMLName xml.Name            `xml:"directory"`
	Error   string              `xml:"error,attr"`
	Entries []types.CommitEntry `xml:"entry"`
}

// decodeCommitResult understands both shapes of a commitfilelist reply: the
// new source listing, or the entries flagged error="missing".
func decodeCommitResult(data []byte) (types.CommitResult, error) {
	var reply commitReply
	if err := decodeXML(data, &reply); err != nil {
		return types.CommitResult{}, err
	}
	switch reply.Error {
	case "":
		var dir types.SourceDirectory
		if err := decodeXML(data, &dir); err != nil {
			return types.CommitResult{}, err
		}
		return types.CommitResult{Success: &dir}, nil
	case "missing":
		missing := reply.Entries
		if missing == nil {
			missing = []types.CommitEntry{}
		}
		return types.CommitResult{Missing: missing}, nil
	default:
		return types.CommitResult{}, decodeError(fmt.Errorf("unknown commit error %q", reply.Error))
	}
}

func decodeBranchStatus(data []byte) (types.BranchStatus, error) {
	var status types.APIStatus
	if err := decodeXML(data, &status); err != nil {
		return types.BranchStatus{}, err
	}
	var branch types.BranchStatus
	fields := []struct {
		name   string
		target *string
	}{
		{name: "targetproject", target: &branch.TargetProject},
		{name: "targetpackage", target: &branch.TargetPackage},
		{name: "sourceproject", target: &branch.SourceProject},
		{name: "sourcepackage", target: &branch.SourcePackage},
	}
	for _, field := range fields {
		value, ok := status.DataValue(field.name)
		if !ok {
			return types.BranchStatus{}, decodeError(fmt.Errorf("branch status has no %s", field.name))
		}
		*field.target = value
	}
	return branch, nil
}

// decodeLogEntry reads the single entry of a _log?view=entry listing.
func decodeLogEntry(data []byte) (types.LogEntry, error) {
	var dir types.Directory
	if err := decodeXML(data, &dir); err != nil {
		return types.LogEntry{}, err
	}
	if len(dir.Entries) == 0 {
		return types.LogEntry{}, &types.OBSError{Kind: types.ErrorKindUnexpected, Cause: errors.New("log listing has no entry")}
	}
	entry := dir.Entries[0]
	return types.LogEntry{Size: entry.Size, MTime: entry.MTime}, nil
}
