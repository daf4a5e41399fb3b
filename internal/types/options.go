package types

type CommitOptions struct {
	Comment string
}

type BranchOptions struct {
	TargetProject          string
	TargetPackage          string
	Comment                string
	Force                  bool
	MissingOK              bool
	AddRepositoriesRebuild RebuildMode
	AddRepositoriesBlock   BlockMode
}

// RebuildFilters limits a project rebuild to the listed packages. An empty
// filter rebuilds every package of the project.
type RebuildFilters struct {
	Packages []string
}

type JobHistoryFilters struct {
	Packages []string
	Codes    []PackageCode
	Limit    int
}

// LogStreamOptions selects a byte range of a build log. End of zero means
// "until the end of the log".
type LogStreamOptions struct {
	Offset        int64
	End           int64
	LastSucceeded bool
}
