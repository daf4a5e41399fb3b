// Package obsmock serves a small in-memory imitation of the OBS API over
// httptest. It keeps just enough state (projects, packages, revisions,
// repositories and build results) for client and CLI tests.
package obsmock

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"obsctl/internal/types"
)

// ZeroRevSrcMD5 is the srcmd5 OBS reports for a package without revisions.
const ZeroRevSrcMD5 = "d41d8cd98f00b204e9800998ecf8427e"

const (
	// AdminUser is recorded as author when no user is given.
	AdminUser = "Admin"
	metaPath  = "_meta"
	// resultState is a fixed value; real OBS derives it from scheduler state.
	resultState = "3ff37f67d60b76bd0491a5243311ba81"
)

// RandomMD5 returns a random lowercase hex digest, usable as a srcmd5.
func RandomMD5() string {
	var buf [md5.Size]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type fileKey struct {
	path string
	md5  string
}

// SourceFile is file content added to a package before it is referenced by
// a revision.
type SourceFile struct {
	Path     string
	Contents []byte
}

func (f SourceFile) key() fileKey {
	return fileKey{path: f.Path, md5: md5Hex(f.Contents)}
}

// Entry references stored content from a revision.
type Entry struct {
	MD5   string
	MTime time.Time
}

type RevisionOptions struct {
	SrcMD5  string
	Version string
	Time    time.Time
	User    string
	Comment string
}

func (o RevisionOptions) withDefaults() RevisionOptions {
	if o.SrcMD5 == "" {
		o.SrcMD5 = RandomMD5()
	}
	if o.Time.IsZero() {
		o.Time = time.Now()
	}
	if o.User == "" {
		o.User = AdminUser
	}
	return o
}

type revision struct {
	vrev     int
	opts     RevisionOptions
	entries  map[string]Entry
	linkInfo []types.LinkInfo
}

type PackageOptions struct {
	MetaSrcMD5 string
	Time       time.Time
	User       string
	Disabled   []types.BuildFlag
	// Meta, when set, is stored as the meta document and its disable flags
	// replace Disabled.
	Meta *types.PackageMeta
}

type mockPackage struct {
	files         map[fileKey][]byte
	revisions     []revision
	metaRevisions []revision
	latestVRevs   map[string]int
	disabled      []types.BuildFlag
}

func packageMetadata(project string, pkg string, opts PackageOptions) (SourceFile, []types.BuildFlag) {
	var meta types.PackageMeta
	if opts.Meta != nil {
		meta = *opts.Meta
	} else if len(opts.Disabled) > 0 {
		meta.Build = &types.PackageBuildMeta{Disabled: opts.Disabled}
	}
	meta.Name = pkg
	meta.Project = project
	data, err := xml.Marshal(meta)
	if err != nil {
		panic(err)
	}
	return SourceFile{Path: metaPath, Contents: data}, meta.DisabledBuilds()
}

func newPackage(project string, name string, opts PackageOptions) *mockPackage {
	pkg := &mockPackage{
		files:       map[fileKey][]byte{},
		latestVRevs: map[string]int{},
	}
	pkg.addMetaRevision(project, name, opts)
	return pkg
}

func (p *mockPackage) addMetaRevision(project string, name string, opts PackageOptions) {
	if opts.MetaSrcMD5 == "" {
		opts.MetaSrcMD5 = RandomMD5()
	}
	if opts.Time.IsZero() {
		opts.Time = time.Now()
	}
	if opts.User == "" {
		opts.User = AdminUser
	}
	meta, disabled := packageMetadata(project, name, opts)
	key := meta.key()
	p.files[key] = meta.Contents
	p.disabled = disabled
	p.metaRevisions = append(p.metaRevisions, revision{
		opts:    RevisionOptions{SrcMD5: opts.MetaSrcMD5, Time: opts.Time, User: opts.User},
		entries: map[string]Entry{metaPath: {MD5: key.md5, MTime: opts.Time}},
	})
}

func (p *mockPackage) addRevision(opts RevisionOptions, entries map[string]Entry) {
	for path, entry := range entries {
		if _, ok := p.files[fileKey{path: path, md5: entry.MD5}]; !ok {
			panic(fmt.Sprintf("revision references unknown file %s (%s)", path, entry.MD5))
		}
	}
	p.latestVRevs[opts.Version]++
	var linkInfo []types.LinkInfo
	if last, ok := p.lastRevision(); ok {
		linkInfo = append(linkInfo, last.linkInfo...)
	}
	p.revisions = append(p.revisions, revision{
		vrev:     p.latestVRevs[opts.Version],
		opts:     opts,
		entries:  entries,
		linkInfo: linkInfo,
	})
}

func (p *mockPackage) lastRevision() (revision, bool) {
	if len(p.revisions) == 0 {
		return revision{}, false
	}
	return p.revisions[len(p.revisions)-1], true
}

func (p *mockPackage) buildDisabled(repository string, arch string) bool {
	for _, flag := range p.disabled {
		if flag.Matches(repository, arch) {
			return true
		}
	}
	return false
}

type BranchOptions struct {
	SrcMD5    string
	XSrcMD5   string
	User      string
	Time      time.Time
	Comment   string
	MissingOK bool
}

func newBranchedPackage(originProject string, originPackage string, origin *mockPackage, project string, name string, opts BranchOptions) *mockPackage {
	if opts.SrcMD5 == "" {
		opts.SrcMD5 = RandomMD5()
	}
	if opts.XSrcMD5 == "" {
		opts.XSrcMD5 = RandomMD5()
	}
	if opts.User == "" {
		opts.User = AdminUser
	}
	if opts.Time.IsZero() {
		opts.Time = time.Now()
	}
	pkg := &mockPackage{
		files:       map[fileKey][]byte{},
		latestVRevs: map[string]int{"": 1},
	}
	entries := map[string]Entry{}
	originSrcMD5 := ZeroRevSrcMD5
	if origin != nil {
		if last, ok := origin.lastRevision(); ok {
			for key, contents := range origin.files {
				pkg.files[key] = contents
			}
			for path, entry := range last.entries {
				entries[path] = entry
			}
			originSrcMD5 = last.opts.SrcMD5
			pkg.disabled = append(pkg.disabled, origin.disabled...)
		}
	}
	pkg.revisions = []revision{{
		vrev: 1,
		opts: RevisionOptions{
			SrcMD5:  opts.SrcMD5,
			Time:    opts.Time,
			User:    opts.User,
			Comment: opts.Comment,
		},
		entries: entries,
		linkInfo: []types.LinkInfo{{
			Project:   originProject,
			Package:   originPackage,
			BaseRev:   originSrcMD5,
			SrcMD5:    originSrcMD5,
			XSrcMD5:   opts.XSrcMD5,
			LSrcMD5:   opts.SrcMD5,
			MissingOK: opts.MissingOK,
		}},
	}}
	pkg.addMetaRevision(project, name, PackageOptions{Time: opts.Time, User: opts.User, Disabled: pkg.disabled})
	return pkg
}

type BuildStatus struct {
	Code  types.PackageCode
	Dirty bool
}

type Binary struct {
	Contents []byte
	MTime    time.Time
}

// BuildLog is a completed build log. A non-zero ChunkSize caps how many
// bytes a single request returns.
type BuildLog struct {
	Contents  string
	MTime     time.Time
	ChunkSize int
}

type repoPackage struct {
	status              BuildStatus
	binaries            map[string]Binary
	latestLog           *BuildLog
	latestSuccessfulLog *BuildLog
	history             []types.BuildHistoryEntry
	jobs                []types.JobHist
	jobStatus           *types.JobStatus
}

type repoArch struct {
	code     types.RepositoryCode
	packages map[string]*repoPackage
}

type mockProject struct {
	title         string
	description   string
	packages      map[string]*mockPackage
	repos         map[string]map[string]*repoArch
	paths         map[string][]types.RepositoryPath
	rebuild       types.RebuildMode
	block         types.BlockMode
	rebuildStatus BuildStatus
}

func newProject() *mockProject {
	return &mockProject{
		packages:      map[string]*mockPackage{},
		repos:         map[string]map[string]*repoArch{},
		paths:         map[string][]types.RepositoryPath{},
		rebuildStatus: BuildStatus{Code: types.PackageCodeScheduled},
	}
}

// Mock is a running fake OBS instance.
type Mock struct {
	server   *httptest.Server
	username string
	password string

	mu       sync.RWMutex
	projects map[string]*mockProject
}

// New starts a mock accepting basic auth with the given credentials. Call
// Close when done.
func New(username string, password string) *Mock {
	m := &Mock{
		username: username,
		password: password,
		projects: map[string]*mockProject{},
	}
	m.server = httptest.NewServer(m.routes())
	return m
}

func (m *Mock) URL() string      { return m.server.URL }
func (m *Mock) Username() string { return m.username }
func (m *Mock) Password() string { return m.password }
func (m *Mock) Close()           { m.server.Close() }

func (m *Mock) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /source", m.listProjects)
	mux.HandleFunc("GET /source/{project}", m.listPackages)
	mux.HandleFunc("DELETE /source/{project}", m.deleteProject)
	mux.HandleFunc("GET /source/{project}/_meta", m.getProjectMeta)
	mux.HandleFunc("PUT /source/{project}/_meta", m.putProjectMeta)
	mux.HandleFunc("GET /source/{project}/{package}", m.listSources)
	mux.HandleFunc("POST /source/{project}/{package}", m.packageCommand)
	mux.HandleFunc("DELETE /source/{project}/{package}", m.deletePackage)
	mux.HandleFunc("GET /source/{project}/{package}/_meta", m.getPackageMeta)
	mux.HandleFunc("PUT /source/{project}/{package}/_meta", m.putPackageMeta)
	mux.HandleFunc("GET /source/{project}/{package}/_history", m.packageHistory)
	mux.HandleFunc("GET /source/{project}/{package}/{file}", m.getSourceFile)
	mux.HandleFunc("PUT /source/{project}/{package}/{file}", m.putSourceFile)

	mux.HandleFunc("GET /build/{project}", m.listRepositories)
	mux.HandleFunc("POST /build/{project}", m.projectBuildCommand)
	mux.HandleFunc("GET /build/{project}/_result", m.buildResults)
	mux.HandleFunc("GET /build/{project}/{repo}", m.listArches)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/_jobhistory", m.jobHistory)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/{package}", m.listBinaries)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/{package}/_status", m.packageStatus)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/{package}/_jobstatus", m.packageJobStatus)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/{package}/_history", m.buildHistory)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/{package}/_log", m.buildLog)
	mux.HandleFunc("GET /build/{project}/{repo}/{arch}/{package}/{file}", m.binaryFile)

	return m.authenticated(mux)
}

func (m *Mock) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("url", r.URL.String()).Msg("obsmock request")
		user, pass, ok := r.BasicAuth()
		if !ok {
			writeAPIError(w, apiError{status: http.StatusUnauthorized, code: "authentication_required", summary: "Authentication required"})
			return
		}
		if user != m.username || pass != m.password {
			writeAPIError(w, apiError{
				status:  http.StatusUnauthorized,
				code:    "authentication_required",
				summary: fmt.Sprintf("Unknown user '%s' or invalid password", user),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Mock) mustProject(name string) *mockProject {
	project, ok := m.projects[name]
	if !ok {
		panic("unknown project: " + name)
	}
	return project
}

func (p *mockProject) mustPackage(name string) *mockPackage {
	pkg, ok := p.packages[name]
	if !ok {
		panic("unknown package: " + name)
	}
	return pkg
}

// AddProject creates an empty project; existing projects are left alone.
func (m *Mock) AddProject(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[name]; !ok {
		m.projects[name] = newProject()
	}
}

func (m *Mock) SetProjectModes(project string, rebuild types.RebuildMode, block types.BlockMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prj := m.mustProject(project)
	prj.rebuild = rebuild
	prj.block = block
}

func (m *Mock) AddNewPackage(project string, name string, opts PackageOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mustProject(project).packages[name] = newPackage(project, name, opts)
}

// SetPackageMetadata records a new meta revision with the given disabled
// build targets.
func (m *Mock) SetPackageMetadata(project string, name string, opts PackageOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mustProject(project).mustPackage(name).addMetaRevision(project, name, opts)
}

// AddPackageFiles stores content so later revisions can reference it and
// returns the entry pointing at it.
func (m *Mock) AddPackageFiles(project string, name string, file SourceFile) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg := m.mustProject(project).mustPackage(name)
	key := file.key()
	pkg.files[key] = file.Contents
	return Entry{MD5: key.md5, MTime: time.Now()}
}

func (m *Mock) AddPackageRevision(project string, name string, opts RevisionOptions, entries map[string]Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mustProject(project).mustPackage(name).addRevision(opts.withDefaults(), entries)
}

func (m *Mock) Branch(originProject string, originPackage string, project string, name string, opts BranchOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	origin := m.mustProject(originProject).mustPackage(originPackage)
	m.mustProject(project).packages[name] = newBranchedPackage(originProject, originPackage, origin, project, name, opts)
}

func (m *Mock) AddOrUpdateRepository(project string, repo string, arch string, code types.RepositoryCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prj := m.mustProject(project)
	arches, ok := prj.repos[repo]
	if !ok {
		arches = map[string]*repoArch{}
		prj.repos[repo] = arches
	}
	if existing, ok := arches[arch]; ok {
		existing.code = code
		return
	}
	arches[arch] = &repoArch{code: code, packages: map[string]*repoPackage{}}
}

func (m *Mock) withRepoPackage(project string, repo string, arch string, pkg string, fn func(*repoPackage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prj := m.mustProject(project)
	prj.mustPackage(pkg)
	arches, ok := prj.repos[repo]
	if !ok {
		panic(fmt.Sprintf("unknown repo: %s/%s", project, repo))
	}
	target, ok := arches[arch]
	if !ok {
		panic(fmt.Sprintf("unknown arch: %s/%s/%s", project, repo, arch))
	}
	fn(target.repoPackage(pkg))
}

func (a *repoArch) repoPackage(name string) *repoPackage {
	pkg, ok := a.packages[name]
	if !ok {
		pkg = &repoPackage{binaries: map[string]Binary{}}
		a.packages[name] = pkg
	}
	return pkg
}

func (m *Mock) SetPackageBuildStatus(project string, repo string, arch string, pkg string, status BuildStatus) {
	m.withRepoPackage(project, repo, arch, pkg, func(p *repoPackage) {
		p.status = status
	})
}

// SetRebuildStatus sets the status rebuilt packages switch to.
func (m *Mock) SetRebuildStatus(project string, status BuildStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mustProject(project).rebuildStatus = status
}

func (m *Mock) SetPackageBinaries(project string, repo string, arch string, pkg string, binaries map[string]Binary) {
	m.withRepoPackage(project, repo, arch, pkg, func(p *repoPackage) {
		p.binaries = binaries
	})
}

func (m *Mock) AddCompletedBuildLog(project string, repo string, arch string, pkg string, buildLog BuildLog, success bool) {
	if buildLog.MTime.IsZero() {
		buildLog.MTime = time.Now()
	}
	m.withRepoPackage(project, repo, arch, pkg, func(p *repoPackage) {
		logCopy := buildLog
		if success {
			p.latestSuccessfulLog = &logCopy
		}
		p.latestLog = &logCopy
	})
}

func (m *Mock) AddBuildHistory(project string, repo string, arch string, pkg string, entry types.BuildHistoryEntry) {
	m.withRepoPackage(project, repo, arch, pkg, func(p *repoPackage) {
		p.history = append(p.history, entry)
	})
}

// AddJobHistory appends a finished job. Package defaults to pkg.
func (m *Mock) AddJobHistory(project string, repo string, arch string, pkg string, job types.JobHist) {
	if job.Package == "" {
		job.Package = pkg
	}
	m.withRepoPackage(project, repo, arch, pkg, func(p *repoPackage) {
		p.jobs = append(p.jobs, job)
	})
}

func (m *Mock) SetJobStatus(project string, repo string, arch string, pkg string, status types.JobStatus) {
	m.withRepoPackage(project, repo, arch, pkg, func(p *repoPackage) {
		p.jobStatus = &status
	})
}

// PackageStatus reports the stored build status, for assertions.
func (m *Mock) PackageStatus(project string, repo string, arch string, pkg string) (BuildStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prj, ok := m.projects[project]
	if !ok {
		return BuildStatus{}, false
	}
	target, ok := prj.repos[repo][arch]
	if !ok {
		return BuildStatus{}, false
	}
	status, ok := target.packages[pkg]
	if !ok {
		return BuildStatus{}, false
	}
	return status.status, true
}

// HasPackage reports whether the project holds the package.
func (m *Mock) HasPackage(project string, pkg string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prj, ok := m.projects[project]
	if !ok {
		return false
	}
	_, ok = prj.packages[pkg]
	return ok
}

func (m *Mock) HasProject(project string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.projects[project]
	return ok
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
