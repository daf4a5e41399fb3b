package app

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"obsctl/internal/core"
	"obsctl/internal/types"
)

const defaultTransferWorkers = 4

func transferWorkers(value int) int {
	if value <= 0 {
		return defaultTransferWorkers
	}
	return value
}

func requireDir(dir string) (string, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("directory is required")
	}
	return filepath.Clean(trimmed), nil
}

// DownloadSources fetches the current sources of a package into req.Dir,
// verifying each file against the MD5 and size of the listing.
func (s Service) DownloadSources(ctx context.Context, req DownloadSourcesRequest) (DownloadResult, error) {
	dir, err := requireDir(req.Dir)
	if err != nil {
		return DownloadResult{}, err
	}
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject|needPackage)
	if err != nil {
		return DownloadResult{}, err
	}
	listing, err := obs.ListSources(ctx, target.Project, target.Package, "")
	if err != nil {
		return DownloadResult{}, err
	}
	for _, entry := range listing.Entries {
		if err := core.ValidateFileName(entry.Name); err != nil {
			return DownloadResult{}, err
		}
	}
	fs := s.fs()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return DownloadResult{}, fsError("create directory", dir, err)
	}

	files := make([]DownloadedFile, len(listing.Entries))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(transferWorkers(req.Workers))
	for i, entry := range listing.Entries {
		group.Go(func() error {
			reader, err := obs.VerifiedSourceFile(groupCtx, target.Project, target.Package, entry.Name, entry.MD5, entry.Size)
			if err != nil {
				return err
			}
			defer reader.Close()
			path := filepath.Join(dir, entry.Name)
			size, err := writeFileAtomic(fs, path, reader, entry.ModTime())
			if err != nil {
				return err
			}
			log.Debug().Str("file", entry.Name).Int64("size", size).Msg("downloaded source")
			files[i] = DownloadedFile{Name: entry.Name, Size: size, MD5: entry.MD5}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return DownloadResult{}, err
	}
	return DownloadResult{Dir: dir, Files: files}, nil
}

// DownloadBinaries fetches the build results of one repository/arch pair,
// checking each file against the listed size, and optionally packs them
// into a zstd compressed tarball.
func (s Service) DownloadBinaries(ctx context.Context, req DownloadBinariesRequest) (DownloadResult, error) {
	dir, err := requireDir(req.Dir)
	if err != nil {
		return DownloadResult{}, err
	}
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject|needPackage|needRepository|needArch)
	if err != nil {
		return DownloadResult{}, err
	}
	list, err := obs.Binaries(ctx, target.Project, target.Package, target.Repository, target.Arch)
	if err != nil {
		return DownloadResult{}, err
	}
	for _, binary := range list.Binaries {
		if err := core.ValidateFileName(binary.Filename); err != nil {
			return DownloadResult{}, err
		}
	}
	fs := s.fs()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return DownloadResult{}, fsError("create directory", dir, err)
	}

	var mu sync.Mutex
	var files []DownloadedFile
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(transferWorkers(req.Workers))
	for _, binary := range list.Binaries {
		group.Go(func() error {
			body, err := obs.BinaryFile(groupCtx, target.Project, target.Package, target.Repository, target.Arch, binary.Filename)
			if err != nil {
				return err
			}
			defer body.Close()
			verifier := core.NewVerifyingReader(body, "", binary.Size)
			size, err := writeFileAtomic(fs, filepath.Join(dir, binary.Filename), verifier, time.Unix(binary.MTime, 0))
			if err != nil {
				return err
			}
			mu.Lock()
			files = append(files, DownloadedFile{Name: binary.Filename, Size: size, MD5: verifier.Sum()})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return DownloadResult{}, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	result := DownloadResult{Dir: dir, Files: files}
	if strings.TrimSpace(req.Archive) != "" {
		archive := filepath.Clean(req.Archive)
		if err := writeArchive(fs, archive, dir, list.Binaries); err != nil {
			return DownloadResult{}, err
		}
		result.Archive = archive
	}
	return result, nil
}

// writeFileAtomic writes r to a temporary sibling of path and renames it in
// place once r is exhausted without error.
func writeFileAtomic(fs afero.Fs, path string, r io.Reader, mtime time.Time) (int64, error) {
	part := path + ".part"
	file, err := fs.Create(part)
	if err != nil {
		return 0, fsError("create", part, err)
	}
	size, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fsError("close", part, closeErr)
	}
	if err != nil {
		_ = fs.Remove(part)
		return 0, err
	}
	if err := fs.Rename(part, path); err != nil {
		_ = fs.Remove(part)
		return 0, fsError("rename", part, err)
	}
	if !mtime.IsZero() && mtime.Unix() > 0 {
		_ = fs.Chtimes(path, mtime, mtime)
	}
	return size, nil
}

func writeArchive(fs afero.Fs, archive string, dir string, binaries []types.Binary) error {
	file, err := fs.Create(archive)
	if err != nil {
		return fsError("create", archive, err)
	}
	defer file.Close()
	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to start zstd encoder").
			WithCause(err)
	}
	tw := tar.NewWriter(encoder)
	sorted := append([]types.Binary(nil), binaries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })
	for _, binary := range sorted {
		if err := addToArchive(fs, tw, filepath.Join(dir, binary.Filename), binary); err != nil {
			_ = encoder.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		_ = encoder.Close()
		return fsError("finish", archive, err)
	}
	if err := encoder.Close(); err != nil {
		return fsError("compress", archive, err)
	}
	return nil
}

func addToArchive(fs afero.Fs, tw *tar.Writer, path string, binary types.Binary) error {
	src, err := fs.Open(path)
	if err != nil {
		return fsError("open", path, err)
	}
	defer src.Close()
	header := &tar.Header{
		Name:    binary.Filename,
		Mode:    0o644,
		Size:    binary.Size,
		ModTime: time.Unix(binary.MTime, 0),
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fsError("archive", path, err)
	}
	if _, err := io.Copy(tw, src); err != nil {
		return fsError("archive", path, err)
	}
	return nil
}

func fsError(action string, path string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to %s %s", action, path)).
		WithCause(err)
}
