package types

import (
	"encoding/xml"
	"time"
)

type ResultList struct {
	XMLName xml.Name `xml:"resultlist" yaml:"-"`
	State   string   `xml:"state,attr"`
	Results []Result `xml:"result"`
}

// Result is the state of one repository/arch pair of a project.
type Result struct {
	Project    string         `xml:"project,attr"`
	Repository string         `xml:"repository,attr"`
	Arch       string         `xml:"arch,attr"`
	Code       RepositoryCode `xml:"code,attr"`
	State      RepositoryCode `xml:"state,attr,omitempty" yaml:",omitempty"`
	Dirty      bool           `xml:"dirty,attr,omitempty" yaml:",omitempty"`
	Statuses   []BuildStatus  `xml:"status"`
}

func (r Result) Status(pkg string) (BuildStatus, bool) {
	for _, status := range r.Statuses {
		if status.Package == pkg {
			return status, true
		}
	}
	return BuildStatus{}, false
}

type BuildStatus struct {
	XMLName xml.Name    `xml:"status" yaml:"-"`
	Package string      `xml:"package,attr"`
	Code    PackageCode `xml:"code,attr"`
	Dirty   bool        `xml:"dirty,attr,omitempty" yaml:",omitempty"`
	Details string      `xml:"details,omitempty" yaml:",omitempty"`
}

// EffectiveCode treats dirty states as unknown, since the scheduler has not
// looked at them again yet.
func (s BuildStatus) EffectiveCode() PackageCode {
	if s.Dirty {
		return PackageCodeUnknown
	}
	return s.Code
}

type JobStatus struct {
	XMLName      xml.Name       `xml:"jobstatus" yaml:"-"`
	Code         RepositoryCode `xml:"code,attr,omitempty" yaml:",omitempty"`
	Details      string         `xml:"details,omitempty" yaml:",omitempty"`
	WorkerID     string         `xml:"workerid,omitempty" yaml:",omitempty"`
	StartTime    int64          `xml:"starttime,omitempty" yaml:",omitempty"`
	EndTime      int64          `xml:"endtime,omitempty" yaml:",omitempty"`
	LastDuration int64          `xml:"lastduration,omitempty" yaml:",omitempty"`
	HostArch     string         `xml:"hostarch,omitempty" yaml:",omitempty"`
	Arch         string         `xml:"arch,omitempty" yaml:",omitempty"`
	JobID        string         `xml:"jobid,omitempty" yaml:",omitempty"`
	Job          string         `xml:"job,omitempty" yaml:",omitempty"`
	Attempt      int            `xml:"attempt,omitempty" yaml:",omitempty"`
}

// Idle reports whether no job is scheduled or running.
func (s JobStatus) Idle() bool {
	return s.Code == "" && s.JobID == "" && s.Job == ""
}

type BuildHistory struct {
	XMLName xml.Name            `xml:"buildhistory" yaml:"-"`
	Entries []BuildHistoryEntry `xml:"entry"`
}

type BuildHistoryEntry struct {
	Rev      string `xml:"rev,attr"`
	SrcMD5   string `xml:"srcmd5,attr"`
	VersRel  string `xml:"versrel,attr"`
	BCnt     int    `xml:"bcnt,attr"`
	Time     int64  `xml:"time,attr"`
	Duration int64  `xml:"duration,attr"`
}

func (e BuildHistoryEntry) BuildTime() time.Time {
	return time.Unix(e.Time, 0).UTC()
}

type JobHistList struct {
	XMLName xml.Name  `xml:"jobhistlist" yaml:"-"`
	Jobs    []JobHist `xml:"jobhist"`
}

type JobHist struct {
	Package   string      `xml:"package,attr"`
	Rev       string      `xml:"rev,attr"`
	SrcMD5    string      `xml:"srcmd5,attr"`
	VersRel   string      `xml:"versrel,attr"`
	BCnt      string      `xml:"bcnt,attr"`
	ReadyTime int64       `xml:"readytime,attr"`
	StartTime int64       `xml:"starttime,attr"`
	EndTime   int64       `xml:"endtime,attr"`
	Code      PackageCode `xml:"code,attr"`
	URI       string      `xml:"uri,attr,omitempty" yaml:",omitempty"`
	WorkerID  string      `xml:"workerid,attr"`
	HostArch  string      `xml:"hostarch,attr"`
	Reason    string      `xml:"reason,attr"`
	VerifyMD5 string      `xml:"verifymd5,attr,omitempty" yaml:",omitempty"`
}

func (j JobHist) Duration() time.Duration {
	if j.EndTime < j.StartTime {
		return 0
	}
	return time.Duration(j.EndTime-j.StartTime) * time.Second
}

type BinaryList struct {
	XMLName  xml.Name `xml:"binarylist" yaml:"-"`
	Binaries []Binary `xml:"binary"`
}

type Binary struct {
	Filename string `xml:"filename,attr"`
	Size     int64  `xml:"size,attr"`
	MTime    int64  `xml:"mtime,attr"`
}

// LogEntry is the size and modification time of a build log.
type LogEntry struct {
	Size  int64
	MTime int64
}
