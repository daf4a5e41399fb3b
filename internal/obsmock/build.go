package obsmock

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"obsctl/internal/types"
)

func (m *Mock) listRepositories(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		name := r.PathValue("project")
		project, ok := m.projects[name]
		if !ok {
			return unknownProject(name)
		}
		dir := types.Directory{}
		for _, repo := range sortedKeys(project.repos) {
			dir.Entries = append(dir.Entries, types.DirectoryEntry{Name: repo})
		}
		writeXML(w, http.StatusOK, dir)
		return nil
	})
}

func (m *Mock) listArches(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		name := r.PathValue("project")
		project, ok := m.projects[name]
		if !ok {
			return unknownProject(name)
		}
		repo := r.PathValue("repo")
		arches, ok := project.repos[repo]
		if !ok {
			return unknownRepo(name, repo)
		}
		dir := types.Directory{}
		for _, arch := range sortedKeys(arches) {
			dir.Entries = append(dir.Entries, types.DirectoryEntry{Name: arch})
		}
		writeXML(w, http.StatusOK, dir)
		return nil
	})
}

func (m *Mock) projectBuildCommand(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		cmd := ""
		var packages []string
		for _, pair := range pairs {
			switch pair[0] {
			case "cmd":
				cmd = pair[1]
			case "package":
				packages = append(packages, pair[1])
			case "arch", "repository", "code", "lastbuild":
				return unsupported()
			default:
				return unknownParameter(pair[0])
			}
		}
		switch cmd {
		case "":
			return missingParameter("cmd")
		case "rebuild":
			return m.rebuild(w, r.PathValue("project"), packages)
		default:
			return apiError{status: http.StatusBadRequest, code: "illegal_request", summary: fmt.Sprintf("unsupported POST command %s", cmd)}
		}
	})
}

// rebuild moves every selected package to the project's rebuild status in
// each repository and architecture the package is not disabled for.
func (m *Mock) rebuild(w http.ResponseWriter, projectName string, packages []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectName]
	if !ok {
		return unknownProject(projectName)
	}
	if len(packages) == 0 {
		packages = sortedKeys(project.packages)
	}
	for _, name := range packages {
		if _, ok := project.packages[name]; !ok {
			return apiError{
				status:  http.StatusNotFound,
				code:    "not_found",
				summary: fmt.Sprintf("<status code=\"unknown_package\">\n  <summary>%s</summary>\n</status>\n", name),
			}
		}
	}
	for repoName, arches := range project.repos {
		for archName, arch := range arches {
			for _, name := range packages {
				if project.packages[name].buildDisabled(repoName, archName) {
					continue
				}
				arch.repoPackage(name).status = project.rebuildStatus
			}
		}
	}
	writeStatusOK(w)
	return nil
}

func statusDocument(name string, status BuildStatus) types.BuildStatus {
	return types.BuildStatus{Package: name, Code: status.Code, Dirty: status.Dirty}
}

func (m *Mock) buildResults(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		var filters []string
		for _, pair := range pairs {
			if pair[0] != "package" {
				return unknownParameter(pair[0])
			}
			filters = append(filters, pair[1])
		}
		m.mu.RLock()
		defer m.mu.RUnlock()
		name := r.PathValue("project")
		project, ok := m.projects[name]
		if !ok {
			return unknownProject(name)
		}
		for _, pkg := range filters {
			if _, ok := project.packages[pkg]; !ok {
				return unknownPackage(pkg)
			}
		}
		list := types.ResultList{State: resultState}
		for _, repoName := range sortedKeys(project.repos) {
			arches := project.repos[repoName]
			for _, archName := range sortedKeys(arches) {
				arch := arches[archName]
				result := types.Result{
					Project:    name,
					Repository: repoName,
					Arch:       archName,
					Code:       arch.code,
					State:      arch.code,
				}
				selected := filters
				if len(selected) == 0 {
					selected = sortedKeys(arch.packages)
				}
				for _, pkg := range selected {
					if status, ok := arch.packages[pkg]; ok {
						result.Statuses = append(result.Statuses, statusDocument(pkg, status.status))
					}
				}
				list.Results = append(list.Results, result)
			}
		}
		writeXML(w, http.StatusOK, list)
		return nil
	})
}

// lookupRepoArch resolves the project, source package, repository and
// architecture of a per-package build route, in the order OBS checks them.
func (m *Mock) lookupRepoArch(r *http.Request) (*repoArch, string, error) {
	projectName := r.PathValue("project")
	project, ok := m.projects[projectName]
	if !ok {
		return nil, "", unknownProject(projectName)
	}
	pkg := r.PathValue("package")
	if _, ok := project.packages[pkg]; !ok {
		return nil, "", unknownPackage(pkg)
	}
	repo := r.PathValue("repo")
	arches, ok := project.repos[repo]
	if !ok {
		return nil, "", unknownRepo(projectName, repo)
	}
	archName := r.PathValue("arch")
	arch, ok := arches[archName]
	if !ok {
		return nil, "", unknownArch(projectName, repo, archName)
	}
	return arch, pkg, nil
}

func (m *Mock) listBinaries(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		arch, pkg, err := m.lookupRepoArch(r)
		if err != nil {
			return err
		}
		list := types.BinaryList{}
		if state, ok := arch.packages[pkg]; ok {
			for _, name := range sortedKeys(state.binaries) {
				binary := state.binaries[name]
				list.Binaries = append(list.Binaries, types.Binary{
					Filename: name,
					Size:     int64(len(binary.Contents)),
					MTime:    binary.MTime.Unix(),
				})
			}
		}
		writeXML(w, http.StatusOK, list)
		return nil
	})
}

func (m *Mock) binaryFile(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		arch, pkg, err := m.lookupRepoArch(r)
		if err != nil {
			return err
		}
		file := r.PathValue("file")
		if state, ok := arch.packages[pkg]; ok {
			if binary, ok := state.binaries[file]; ok {
				writeRaw(w, "application/octet-stream", binary.Contents)
				return nil
			}
		}
		return apiError{status: http.StatusNotFound, code: "404", summary: fmt.Sprintf("%s: No such file or directory", file)}
	})
}

func (m *Mock) packageStatus(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		arch, pkg, err := m.lookupRepoArch(r)
		if err != nil {
			return err
		}
		status := BuildStatus{Code: types.PackageCodeDisabled}
		if state, ok := arch.packages[pkg]; ok {
			status = state.status
		}
		writeXML(w, http.StatusOK, statusDocument(pkg, status))
		return nil
	})
}

func (m *Mock) packageJobStatus(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		arch, pkg, err := m.lookupRepoArch(r)
		if err != nil {
			return err
		}
		status := types.JobStatus{}
		if state, ok := arch.packages[pkg]; ok && state.jobStatus != nil {
			status = *state.jobStatus
		}
		writeXML(w, http.StatusOK, status)
		return nil
	})
}

func (m *Mock) buildHistory(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		if len(pairs) > 0 {
			return unknownParameter(pairs[0][0])
		}
		m.mu.RLock()
		defer m.mu.RUnlock()
		arch, pkg, err := m.lookupRepoArch(r)
		if err != nil {
			return err
		}
		history := types.BuildHistory{}
		if state, ok := arch.packages[pkg]; ok {
			history.Entries = append(history.Entries, state.history...)
		}
		writeXML(w, http.StatusOK, history)
		return nil
	})
}

// jobHistory lists finished jobs of the architecture, newest last, filtered
// by package and code. limit keeps the newest entries.
func (m *Mock) jobHistory(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		var (
			packages []string
			codes    []types.PackageCode
			limit    int
		)
		for _, pair := range pairs {
			switch pair[0] {
			case "package":
				packages = append(packages, pair[1])
			case "code":
				code, err := types.ParsePackageCode(pair[1])
				if err != nil {
					return badRequest(err.Error())
				}
				codes = append(codes, code)
			case "limit":
				if limit, err = parseNumberParam(pair[1]); err != nil {
					return err
				}
			default:
				return unknownParameter(pair[0])
			}
		}
		m.mu.RLock()
		defer m.mu.RUnlock()
		projectName := r.PathValue("project")
		project, ok := m.projects[projectName]
		if !ok {
			return unknownProject(projectName)
		}
		repo := r.PathValue("repo")
		arches, ok := project.repos[repo]
		if !ok {
			return unknownRepo(projectName, repo)
		}
		archName := r.PathValue("arch")
		arch, ok := arches[archName]
		if !ok {
			return unknownArch(projectName, repo, archName)
		}
		var jobs []types.JobHist
		for _, name := range sortedKeys(arch.packages) {
			if len(packages) > 0 && !slices.Contains(packages, name) {
				continue
			}
			for _, job := range arch.packages[name].jobs {
				if len(codes) > 0 && !slices.Contains(codes, job.Code) {
					continue
				}
				jobs = append(jobs, job)
			}
		}
		slices.SortStableFunc(jobs, func(a types.JobHist, b types.JobHist) int {
			return cmp.Compare(a.EndTime, b.EndTime)
		})
		if limit > 0 && len(jobs) > limit {
			jobs = jobs[len(jobs)-limit:]
		}
		writeXML(w, http.StatusOK, types.JobHistList{Jobs: jobs})
		return nil
	})
}

func (m *Mock) buildLog(w http.ResponseWriter, r *http.Request) {
	handle(w, func() error {
		pairs, err := queryPairs(r)
		if err != nil {
			return err
		}
		var (
			start         int
			end           = -1
			lastSucceeded bool
			entryView     bool
		)
		for _, pair := range pairs {
			key, value := pair[0], pair[1]
			switch {
			case key == "start":
				if start, err = parseNumberParam(value); err != nil {
					return err
				}
			case key == "end":
				if end, err = parseNumberParam(value); err != nil {
					return err
				}
			case key == "lastsucceeded":
				if lastSucceeded, err = parseBoolParam(value); err != nil {
					return err
				}
			case key == "last", key == "nostream":
				if _, err = parseBoolParam(value); err != nil {
					return err
				}
			case key == "view" && value != "":
				if value != "entry" {
					return badRequest(fmt.Sprintf("unknown view '%s'", value))
				}
				entryView = true
			default:
				return unknownParameter(key)
			}
		}

		m.mu.RLock()
		defer m.mu.RUnlock()
		arch, pkg, err := m.lookupRepoArch(r)
		if err != nil {
			return err
		}
		state, ok := arch.packages[pkg]
		if !ok {
			return badRequest(fmt.Sprintf("remote error: %s no logfile", pkg))
		}
		buildLog := state.latestLog
		if lastSucceeded {
			buildLog = state.latestSuccessfulLog
		}

		if entryView {
			dir := types.Directory{}
			if buildLog != nil {
				dir.Entries = append(dir.Entries, types.DirectoryEntry{
					Name:  "_log",
					Size:  int64(len(buildLog.Contents)),
					MTime: buildLog.MTime.Unix(),
				})
			}
			writeXML(w, http.StatusOK, dir)
			return nil
		}

		contents := ""
		chunk := 0
		if buildLog != nil {
			contents = buildLog.Contents
			chunk = buildLog.ChunkSize
		}
		if start > len(contents) {
			return badRequest("remote error: start out of range  " + strconv.Itoa(start))
		}
		if end < 0 || end > len(contents) {
			end = len(contents)
		}
		if chunk > 0 && start+chunk < end {
			end = start + chunk
		}
		if end < start {
			end = start
		}
		writeRaw(w, "text/plain", []byte(contents[start:end]))
		return nil
	})
}
