package app

import (
	"io"
	"time"

	"obsctl/internal/core"
	"obsctl/internal/types"
)

type ConnectionRequest struct {
	APIURL            string
	OscrcPath         string
	Username          string
	Password          string
	Timeout           time.Duration
	Retries           int
	RetryDelay        time.Duration
	RequestsPerSecond float64
}

// TargetRequest names a project and, depending on the use case, a package
// and a repository/arch pair.
type TargetRequest struct {
	Connection ConnectionRequest
	Project    string
	Package    string
	Repository string
	Arch       string
}

type MonitorRequest struct {
	Target   TargetRequest
	Interval time.Duration
	// OnChange is called for every change of a target's code.
	OnChange func(core.MonitorChange)
}

type MonitorResult struct {
	Outcome core.MonitorOutcome
	Targets []core.TargetState
	Failed  []core.TargetState
	Polls   int
	Elapsed time.Duration
}

type SourcesRequest struct {
	Target TargetRequest
	Rev    string
	Meta   bool
}

type MetaResult struct {
	Project *types.ProjectMeta `yaml:"project,omitempty"`
	Package *types.PackageMeta `yaml:"package,omitempty"`
}

type HistoryResult struct {
	Entries []types.BuildHistoryEntry
	Latest  *types.BuildHistoryEntry
}

type JobHistoryRequest struct {
	Target  TargetRequest
	Filters types.JobHistoryFilters
}

type LogRequest struct {
	Target        TargetRequest
	Offset        int64
	End           int64
	LastSucceeded bool
	Out           io.Writer
}

type DownloadSourcesRequest struct {
	Target  TargetRequest
	Dir     string
	Workers int
}

type DownloadBinariesRequest struct {
	Target  TargetRequest
	Dir     string
	Workers int
	// Archive, when set, is the path of a .tar.zst file receiving every
	// downloaded binary.
	Archive string
}

type DownloadedFile struct {
	Name string
	Size int64
	MD5  string
}

type DownloadResult struct {
	Dir     string
	Files   []DownloadedFile
	Archive string
}

type CommitDirectoryRequest struct {
	Target  TargetRequest
	Dir     string
	Comment string
	Workers int
}

type CommitDirectoryResult struct {
	Rev      string
	SrcMD5   string
	Files    int
	Uploaded []string
}

type BranchRequest struct {
	Target  TargetRequest
	Options types.BranchOptions
}

type RebuildRequest struct {
	Target   TargetRequest
	Packages []string
}

type CreateRequest struct {
	Target       TargetRequest
	Title        string
	Description  string
	Repositories []types.RepositoryMeta
}

type DeleteRequest struct {
	Target TargetRequest
	Force  bool
}
