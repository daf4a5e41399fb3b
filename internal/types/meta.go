package types

import "encoding/xml"

// ProjectMeta is the document served at /source/<project>/_meta.
type ProjectMeta struct {
	XMLName      xml.Name         `xml:"project" yaml:"-"`
	Name         string           `xml:"name,attr"`
	Title        string           `xml:"title"`
	Description  string           `xml:"description"`
	Repositories []RepositoryMeta `xml:"repository"`
}

type RepositoryMeta struct {
	Name    string           `xml:"name,attr"`
	Rebuild RebuildMode      `xml:"rebuild,attr,omitempty"`
	Block   BlockMode        `xml:"block,attr,omitempty"`
	Paths   []RepositoryPath `xml:"path"`
	Arches  []string         `xml:"arch"`
}

type RepositoryPath struct {
	Project    string `xml:"project,attr"`
	Repository string `xml:"repository,attr"`
}

func (m ProjectMeta) Repository(name string) (RepositoryMeta, bool) {
	for _, repo := range m.Repositories {
		if repo.Name == name {
			return repo, true
		}
	}
	return RepositoryMeta{}, false
}

// PackageMeta is the document served at /source/<project>/<package>/_meta.
type PackageMeta struct {
	XMLName     xml.Name          `xml:"package" yaml:"-"`
	Name        string            `xml:"name,attr"`
	Project     string            `xml:"project,attr"`
	Title       string            `xml:"title"`
	Description string            `xml:"description"`
	Build       *PackageBuildMeta `xml:"build"`
}

type PackageBuildMeta struct {
	Enabled  []BuildFlag `xml:"enable"`
	Disabled []BuildFlag `xml:"disable"`
}

// BuildFlag selects a repository and/or architecture. Empty fields match
// everything.
type BuildFlag struct {
	Repository string `xml:"repository,attr,omitempty"`
	Arch       string `xml:"arch,attr,omitempty"`
}

func (f BuildFlag) Matches(repository string, arch string) bool {
	return (f.Repository == "" || f.Repository == repository) && (f.Arch == "" || f.Arch == arch)
}

func (m PackageMeta) DisabledBuilds() []BuildFlag {
	if m.Build == nil {
		return nil
	}
	return m.Build.Disabled
}

// BuildDisabled reports whether the package meta disables building for the
// given target.
func (m PackageMeta) BuildDisabled(repository string, arch string) bool {
	for _, flag := range m.DisabledBuilds() {
		if flag.Matches(repository, arch) {
			return true
		}
	}
	return false
}
