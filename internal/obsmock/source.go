package obsmock

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"obsctl/internal/types"
)

func (m *Mock) listProjects(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir := types.Directory{Count: len(m.projects)}
	for _, name := range sortedKeys(m.projects) {
		dir.Entries = append(dir.Entries, types.DirectoryEntry{Name: name})
	}
	writeXML(w, http.StatusOK, dir)
}

func (m *Mock) listPackages(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		name := r.PathValue("project")
		project, ok := m.projects[name]
		if !ok {
			return unknownProject(name)
		}
		dir := types.Directory{Count: len(project.packages)}
		for _, pkg := range sortedKeys(project.packages) {
			dir.Entries = append(dir.Entries, types.DirectoryEntry{Name: pkg})
		}
		writeXML(w, http.StatusOK, dir)
		return nil
	})
}

func (m *Mock) deleteProject(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		name := r.PathValue("project")
		if _, ok := m.projects[name]; !ok {
			return unknownProject(name)
		}
		delete(m.projects, name)
		writeStatusOK(w)
		return nil
	})
}

func (m *Mock) getProjectMeta(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		name := r.PathValue("project")
		project, ok := m.projects[name]
		if !ok {
			return unknownProject(name)
		}
		meta := types.ProjectMeta{Name: name, Title: project.title, Description: project.description}
		for _, repoName := range sortedKeys(project.repos) {
			repo := types.RepositoryMeta{
				Name:   repoName,
				Paths:  project.paths[repoName],
				Arches: sortedKeys(project.repos[repoName]),
			}
			if project.rebuild.OrDefault() != types.RebuildModeTransitive {
				repo.Rebuild = project.rebuild
			}
			if project.block.OrDefault() != types.BlockModeAll {
				repo.Block = project.block
			}
			meta.Repositories = append(meta.Repositories, repo)
		}
		writeXML(w, http.StatusOK, meta)
		return nil
	})
}

// putProjectMeta creates the project when needed, replaces its title,
// description and repository paths, and adds the repositories and
// architectures listed in the document.
func (m *Mock) putProjectMeta(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		name := r.PathValue("project")
		var meta types.ProjectMeta
		if err := decodeBody(r, &meta); err != nil {
			return err
		}
		if meta.Name != name {
			return badRequest(fmt.Sprintf("project name mismatch: %s != %s", meta.Name, name))
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		project, ok := m.projects[name]
		if !ok {
			project = newProject()
			m.projects[name] = project
		}
		project.title = meta.Title
		project.description = meta.Description
		for _, repo := range meta.Repositories {
			project.paths[repo.Name] = repo.Paths
			arches, ok := project.repos[repo.Name]
			if !ok {
				arches = map[string]*repoArch{}
				project.repos[repo.Name] = arches
			}
			for _, arch := range repo.Arches {
				if _, ok := arches[arch]; !ok {
					arches[arch] = &repoArch{code: types.RepositoryCodeUnknown, packages: map[string]*repoPackage{}}
				}
			}
			if repo.Rebuild != "" {
				project.rebuild = repo.Rebuild
			}
			if repo.Block != "" {
				project.block = repo.Block
			}
		}
		writeStatusOK(w)
		return nil
	})
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return badRequest(err.Error())
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

func (m *Mock) lookupPackage(projectName string, pkgName string) (*mockProject, *mockPackage, error) {
	project, ok := m.projects[projectName]
	if !ok {
		return nil, nil, unknownProject(projectName)
	}
	pkg, ok := project.packages[pkgName]
	if !ok {
		return nil, nil, unknownPackage(pkgName)
	}
	return project, pkg, nil
}

func sourceDirectory(name string, rev int, r revision, includeVRev bool) types.SourceDirectory {
	dir := types.SourceDirectory{
		Name:     name,
		Rev:      strconv.Itoa(rev),
		SrcMD5:   r.opts.SrcMD5,
		LinkInfo: r.linkInfo,
	}
	if includeVRev {
		dir.VRev = strconv.Itoa(r.vrev)
	}
	for _, path := range sortedKeys(r.entries) {
		entry := r.entries[path]
		dir.Entries = append(dir.Entries, types.SourceEntry{
			Name:  path,
			MD5:   entry.MD5,
			MTime: entry.MTime.Unix(),
		})
	}
	return dir
}

func (m *Mock) listSources(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		rev := -1
		meta := false
		for _, pair := range pairs {
			switch pair[0] {
			case "meta":
				if meta, err = parseBoolParam(pair[1]); err != nil {
					return err
				}
			case "rev":
				n, err := strconv.Atoi(pair[1])
				if err != nil || n < 0 {
					return badRequest(fmt.Sprintf("bad revision '%s'", pair[1]))
				}
				rev = n
			case "expand":
			default:
				return unknownParameter(pair[0])
			}
		}

		m.mu.RLock()
		defer m.mu.RUnlock()
		name := r.PathValue("package")
		_, pkg, err := m.lookupPackage(r.PathValue("project"), name)
		if err != nil {
			return err
		}
		revisions := pkg.revisions
		if meta {
			revisions = pkg.metaRevisions
		}
		if rev < 0 {
			rev = len(revisions)
		}
		if rev == 0 {
			writeXML(w, http.StatusOK, types.SourceDirectory{Name: name, SrcMD5: ZeroRevSrcMD5})
			return nil
		}
		if rev > len(revisions) {
			return badRequest("no such revision")
		}
		dir := sourceDirectory(name, rev, revisions[rev-1], !meta)
		for i, entry := range dir.Entries {
			dir.Entries[i].Size = int64(len(pkg.files[fileKey{path: entry.Name, md5: entry.MD5}]))
		}
		writeXML(w, http.StatusOK, dir)
		return nil
	})
}

func (m *Mock) deletePackage(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		projectName := r.PathValue("project")
		name := r.PathValue("package")
		project, _, err := m.lookupPackage(projectName, name)
		if err != nil {
			return err
		}
		delete(project.packages, name)
		for _, arches := range project.repos {
			for _, arch := range arches {
				delete(arch.packages, name)
			}
		}
		writeStatusOK(w)
		return nil
	})
}

func (m *Mock) getPackageMeta(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		_, pkg, err := m.lookupPackage(r.PathValue("project"), r.PathValue("package"))
		if err != nil {
			return err
		}
		latest := pkg.metaRevisions[len(pkg.metaRevisions)-1]
		entry := latest.entries[metaPath]
		writeRaw(w, "application/xml", pkg.files[fileKey{path: metaPath, md5: entry.MD5}])
		return nil
	})
}

// putPackageMeta stores the document as the newest meta revision, creating
// the package if it does not exist.
func (m *Mock) putPackageMeta(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		projectName := r.PathValue("project")
		name := r.PathValue("package")
		var meta types.PackageMeta
		if err := decodeBody(r, &meta); err != nil {
			return err
		}
		if meta.Name != name || meta.Project != projectName {
			return badRequest(fmt.Sprintf("package meta names %s/%s, expected %s/%s", meta.Project, meta.Name, projectName, name))
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		project, ok := m.projects[projectName]
		if !ok {
			return unknownProject(projectName)
		}
		opts := PackageOptions{User: m.username, Meta: &meta}
		if pkg, ok := project.packages[name]; ok {
			pkg.addMetaRevision(projectName, name, opts)
		} else {
			project.packages[name] = newPackage(projectName, name, opts)
		}
		writeStatusOK(w)
		return nil
	})
}

func (m *Mock) packageHistory(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		_, pkg, err := m.lookupPackage(r.PathValue("project"), r.PathValue("package"))
		if err != nil {
			return err
		}
		list := types.RevisionList{}
		for i, rev := range pkg.revisions {
			version := rev.opts.Version
			if version == "" {
				version = "unknown"
			}
			list.Revisions = append(list.Revisions, types.Revision{
				Rev:     strconv.Itoa(i + 1),
				VRev:    strconv.Itoa(rev.vrev),
				SrcMD5:  rev.opts.SrcMD5,
				Version: version,
				Time:    rev.opts.Time.Unix(),
				User:    rev.opts.User,
				Comment: rev.opts.Comment,
			})
		}
		writeXML(w, http.StatusOK, list)
		return nil
	})
}

func (m *Mock) getSourceFile(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		_, pkg, err := m.lookupPackage(r.PathValue("project"), r.PathValue("package"))
		if err != nil {
			return err
		}
		file := r.PathValue("file")
		notFound := apiError{status: http.StatusNotFound, code: "404", summary: fmt.Sprintf("%s: no such file", file)}
		last, ok := pkg.lastRevision()
		if !ok {
			return notFound
		}
		entry, ok := last.entries[file]
		if !ok {
			return notFound
		}
		writeRaw(w, "application/octet-stream", pkg.files[fileKey{path: file, md5: entry.MD5}])
		return nil
	})
}

type uploadedRevision struct {
	XMLName xml.Name `xml:"revision"`
	Rev     string   `xml:"rev,attr"`
	SrcMD5  string   `xml:"srcmd5"`
}

// putSourceFile only supports rev=repository, which stores content for a
// later commitfilelist.
func (m *Mock) putSourceFile(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		repository := false
		for _, pair := range pairs {
			if pair[0] != "rev" || pair[1] != "repository" {
				return unsupported()
			}
			repository = true
		}
		if !repository {
			return unsupported()
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return badRequest(err.Error())
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		_, pkg, err := m.lookupPackage(r.PathValue("project"), r.PathValue("package"))
		if err != nil {
			return err
		}
		file := SourceFile{Path: r.PathValue("file"), Contents: data}
		key := file.key()
		pkg.files[key] = data
		writeXML(w, http.StatusOK, uploadedRevision{Rev: "repository", SrcMD5: key.md5})
		return nil
	})
}

func (m *Mock) packageCommand(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		cmd := ""
		for _, pair := range pairs {
			if pair[0] == "cmd" {
				cmd = pair[1]
				break
			}
		}
		switch cmd {
		case "":
			return missingParameter("cmd")
		case "commitfilelist":
			return m.commitFileList(w, r, pairs)
		case "branch":
			return m.branch(w, r, pairs)
		default:
			return apiError{status: http.StatusNotFound, code: "illegal_request", summary: "invalid_command"}
		}
	})
}

type missingEntries struct {
	XMLName xml.Name            `xml:"directory"`
	Name    string              `xml:"name,attr"`
	Error   string              `xml:"error,attr"`
	Entries []types.CommitEntry `xml:"entry"`
}

func (m *Mock) commitFileList(w http.ResponseWriter, r *http.Request, pairs [][2]string) error {
	comment := ""
	for _, pair := range pairs {
		switch pair[0] {
		case "cmd":
		case "comment":
			comment = pair[1]
		default:
			return unknownParameter(pair[0])
		}
	}
	var files types.CommitFileList
	if err := decodeBody(r, &files); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := r.PathValue("package")
	_, pkg, err := m.lookupPackage(r.PathValue("project"), name)
	if err != nil {
		return err
	}

	missing := missingEntries{Name: name, Error: "missing"}
	for _, entry := range files.Entries {
		if _, ok := pkg.files[fileKey{path: entry.Name, md5: entry.MD5}]; !ok {
			missing.Entries = append(missing.Entries, entry)
		}
	}
	if len(missing.Entries) > 0 {
		writeXML(w, http.StatusOK, missing)
		return nil
	}

	now := time.Now()
	entries := make(map[string]Entry, len(files.Entries))
	for _, entry := range files.Entries {
		entries[entry.Name] = Entry{MD5: entry.MD5, MTime: now}
	}
	pkg.addRevision(RevisionOptions{
		SrcMD5:  RandomMD5(),
		Time:    now,
		User:    m.username,
		Comment: comment,
	}, entries)
	rev := len(pkg.revisions)
	dir := sourceDirectory(name, rev, pkg.revisions[rev-1], true)
	for i, entry := range dir.Entries {
		dir.Entries[i].Size = int64(len(pkg.files[fileKey{path: entry.Name, md5: entry.MD5}]))
	}
	writeXML(w, http.StatusOK, dir)
	return nil
}

func (m *Mock) branch(w http.ResponseWriter, r *http.Request, pairs [][2]string) error {
	originProjectName := r.PathValue("project")
	originPackageName := r.PathValue("package")
	targetProjectName := fmt.Sprintf("home:%s:branches:%s", m.username, originProjectName)
	targetPackageName := originPackageName
	var (
		comment   string
		force     bool
		missingOK bool
		rebuild   types.RebuildMode
		block     types.BlockMode
		err       error
	)
	for _, pair := range pairs {
		switch pair[0] {
		case "cmd":
		case "target_project":
			targetProjectName = pair[1]
		case "target_package":
			targetPackageName = pair[1]
		case "comment":
			comment = pair[1]
		case "force":
			force = true
		case "missingok":
			missingOK = true
		case "add_repositories_rebuild":
			if rebuild, err = types.ParseRebuildMode(pair[1]); err != nil {
				return apiError{status: http.StatusBadRequest, code: "invalid_argument", summary: err.Error()}
			}
		case "add_repositories_block":
			if block, err = types.ParseBlockMode(pair[1]); err != nil {
				return apiError{status: http.StatusBadRequest, code: "invalid_argument", summary: err.Error()}
			}
		default:
			return unknownParameter(pair[0])
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	originProject, ok := m.projects[originProjectName]
	if !ok && !missingOK {
		return unknownProject(originProjectName)
	}
	var origin *mockPackage
	if originProject != nil {
		origin = originProject.packages[originPackageName]
	}
	switch {
	case origin != nil && missingOK:
		return apiError{
			status: http.StatusBadRequest,
			code:   "not_missing",
			summary: fmt.Sprintf("Branch call with missingok parameter but branched source (%s/%s) exists.",
				originProjectName, originPackageName),
		}
	case origin == nil && !missingOK:
		return unknownPackage(originPackageName)
	}

	target, ok := m.projects[targetProjectName]
	if !ok {
		target = newProject()
		target.rebuild = rebuild
		target.block = block
		if originProject != nil {
			for repoName, arches := range originProject.repos {
				copied := make(map[string]*repoArch, len(arches))
				for arch, state := range arches {
					copied[arch] = &repoArch{code: state.code, packages: map[string]*repoPackage{}}
				}
				target.repos[repoName] = copied
			}
		}
		m.projects[targetProjectName] = target
	} else if _, exists := target.packages[targetPackageName]; exists && !force {
		return apiError{
			status:  http.StatusBadRequest,
			code:    "double_branch_package",
			summary: fmt.Sprintf("branch target package already exists: %s/%s", targetProjectName, targetPackageName),
		}
	}

	target.packages[targetPackageName] = newBranchedPackage(originProjectName, originPackageName, origin,
		targetProjectName, targetPackageName, BranchOptions{
			User:      m.username,
			Comment:   comment,
			MissingOK: missingOK,
		})
	writeStatusOK(w,
		types.StatusData{Name: "targetproject", Value: targetProjectName},
		types.StatusData{Name: "targetpackage", Value: targetPackageName},
		types.StatusData{Name: "sourceproject", Value: originProjectName},
		types.StatusData{Name: "sourcepackage", Value: originPackageName},
	)
	return nil
}
