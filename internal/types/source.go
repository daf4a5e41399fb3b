package types

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"time"
)

// Directory is the generic <directory><entry name=.../></directory> listing
// used for projects, packages, repositories, architectures and log entries.
type Directory struct {
	XMLName xml.Name         `xml:"directory" yaml:"-"`
	Count   int              `xml:"count,attr,omitempty" yaml:",omitempty"`
	Entries []DirectoryEntry `xml:"entry"`
}

type DirectoryEntry struct {
	Name  string `xml:"name,attr"`
	Size  int64  `xml:"size,attr,omitempty" yaml:",omitempty"`
	MTime int64  `xml:"mtime,attr,omitempty" yaml:",omitempty"`
}

func (d Directory) Names() []string {
	names := make([]string, 0, len(d.Entries))
	for _, entry := range d.Entries {
		names = append(names, entry.Name)
	}
	return names
}

// SourceDirectory is a package source listing at a given revision.
type SourceDirectory struct {
	XMLName  xml.Name      `xml:"directory" yaml:"-"`
	Name     string        `xml:"name,attr"`
	Rev      string        `xml:"rev,attr,omitempty"`
	VRev     string        `xml:"vrev,attr,omitempty"`
	SrcMD5   string        `xml:"srcmd5,attr,omitempty"`
	LinkInfo []LinkInfo    `xml:"linkinfo"`
	Entries  []SourceEntry `xml:"entry"`
}

type SourceEntry struct {
	Name          string `xml:"name,attr"`
	MD5           string `xml:"md5,attr"`
	Size          int64  `xml:"size,attr"`
	MTime         int64  `xml:"mtime,attr"`
	OriginProject string `xml:"originproject,attr,omitempty" yaml:",omitempty"`
	Hash          string `xml:"hash,attr,omitempty" yaml:",omitempty"`
}

func (e SourceEntry) ModTime() time.Time {
	return time.Unix(e.MTime, 0).UTC()
}

// LinkInfo describes the link of a branched package to its origin.
type LinkInfo struct {
	Project   string `xml:"project,attr"`
	Package   string `xml:"package,attr"`
	BaseRev   string `xml:"baserev,attr,omitempty" yaml:",omitempty"`
	SrcMD5    string `xml:"srcmd5,attr,omitempty" yaml:",omitempty"`
	XSrcMD5   string `xml:"xsrcmd5,attr,omitempty" yaml:",omitempty"`
	LSrcMD5   string `xml:"lsrcmd5,attr,omitempty" yaml:",omitempty"`
	Error     string `xml:"error,attr,omitempty" yaml:",omitempty"`
	MissingOK bool   `xml:"missingok,attr,omitempty" yaml:",omitempty"`
}

func (d SourceDirectory) Entry(name string) (SourceEntry, bool) {
	for _, entry := range d.Entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return SourceEntry{}, false
}

type RevisionList struct {
	XMLName   xml.Name   `xml:"revisionlist" yaml:"-"`
	Revisions []Revision `xml:"revision"`
}

type Revision struct {
	Rev     string `xml:"rev,attr"`
	VRev    string `xml:"vrev,attr"`
	SrcMD5  string `xml:"srcmd5"`
	Version string `xml:"version"`
	Time    int64  `xml:"time"`
	User    string `xml:"user"`
	Comment string `xml:"comment,omitempty" yaml:",omitempty"`
}

func (r Revision) CommitTime() time.Time {
	return time.Unix(r.Time, 0).UTC()
}

// Latest returns the newest revision, if any.
func (l RevisionList) Latest() (Revision, bool) {
	if len(l.Revisions) == 0 {
		return Revision{}, false
	}
	return l.Revisions[len(l.Revisions)-1], true
}

type CommitEntry struct {
	Name string `xml:"name,attr"`
	MD5  string `xml:"md5,attr"`
}

// CommitEntryFromContents hashes data into a commit entry with a lowercase
// hex MD5.
func CommitEntryFromContents(name string, data []byte) CommitEntry {
	sum := md5.Sum(data)
	return CommitEntry{Name: name, MD5: hex.EncodeToString(sum[:])}
}

// CommitFileList is the request body of cmd=commitfilelist.
type CommitFileList struct {
	XMLName xml.Name      `xml:"directory" yaml:"-"`
	Entries []CommitEntry `xml:"entry"`
}

func (l *CommitFileList) Add(entry CommitEntry) {
	l.Entries = append(l.Entries, entry)
}

// CommitResult is either the new source listing or the entries the server
// has no content for yet.
type CommitResult struct {
	Success *SourceDirectory
	Missing []CommitEntry
}

func (r CommitResult) HasMissing() bool {
	return r.Success == nil
}

type BranchStatus struct {
	SourceProject string
	SourcePackage string
	TargetProject string
	TargetPackage string
}
