package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"obsctl/internal/core"
	"obsctl/internal/ports"
	"obsctl/internal/types"
)

// CommitDirectory commits the regular files at the top of req.Dir as the
// new contents of a package. Files the server does not know yet are
// uploaded before the commit is repeated.
func (s Service) CommitDirectory(ctx context.Context, req CommitDirectoryRequest) (CommitDirectoryResult, error) {
	dir, err := requireDir(req.Dir)
	if err != nil {
		return CommitDirectoryResult{}, err
	}
	target := req.Target
	obs, err := s.connectTarget(ctx, target, needProject|needPackage)
	if err != nil {
		return CommitDirectoryResult{}, err
	}
	fs := s.fs()
	files, err := hashDirectory(fs, dir)
	if err != nil {
		return CommitDirectoryResult{}, err
	}
	opts := types.CommitOptions{Comment: req.Comment}
	result, err := obs.Commit(ctx, target.Project, target.Package, files, opts)
	if err != nil {
		return CommitDirectoryResult{}, err
	}

	var uploaded []string
	if result.HasMissing() {
		uploaded, err = uploadMissing(ctx, obs, fs, target, dir, result.Missing, transferWorkers(req.Workers))
		if err != nil {
			return CommitDirectoryResult{}, err
		}
		result, err = obs.Commit(ctx, target.Project, target.Package, files, opts)
		if err != nil {
			return CommitDirectoryResult{}, err
		}
		if result.HasMissing() {
			names := make([]string, 0, len(result.Missing))
			for _, entry := range result.Missing {
				names = append(names, entry.Name)
			}
			return CommitDirectoryResult{}, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("files still missing after upload: " + strings.Join(names, ", "))
		}
	}
	log.Info().
		Str("project", target.Project).
		Str("package", target.Package).
		Str("rev", result.Success.Rev).
		Int("uploaded", len(uploaded)).
		Msg("committed")
	return CommitDirectoryResult{
		Rev:      result.Success.Rev,
		SrcMD5:   result.Success.SrcMD5,
		Files:    len(files.Entries),
		Uploaded: uploaded,
	}, nil
}

// hashDirectory lists the regular, non hidden files of dir with their MD5.
func hashDirectory(fs afero.Fs, dir string) (types.CommitFileList, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return types.CommitFileList{}, fsError("read directory", dir, err)
	}
	var files types.CommitFileList
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !info.Mode().IsRegular() {
			log.Warn().Str("path", filepath.Join(dir, name)).Msg("skipping non regular file")
			continue
		}
		if err := core.ValidateFileName(name); err != nil {
			return types.CommitFileList{}, err
		}
		digest, err := digestFile(fs, filepath.Join(dir, name))
		if err != nil {
			return types.CommitFileList{}, err
		}
		files.Add(types.CommitEntry{Name: name, MD5: digest.MD5})
	}
	return files, nil
}

func digestFile(fs afero.Fs, path string) (core.FileDigest, error) {
	file, err := fs.Open(path)
	if err != nil {
		return core.FileDigest{}, fsError("open", path, err)
	}
	defer file.Close()
	digest, err := core.DigestReader(file)
	if err != nil {
		return core.FileDigest{}, fsError("read", path, err)
	}
	return digest, nil
}

func uploadMissing(ctx context.Context, obs ports.OBSPort, fs afero.Fs, target TargetRequest, dir string, missing []types.CommitEntry, workers int) ([]string, error) {
	uploaded := make([]string, len(missing))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, entry := range missing {
		group.Go(func() error {
			path := filepath.Join(dir, entry.Name)
			file, err := fs.Open(path)
			if err != nil {
				return fsError("open", path, err)
			}
			defer file.Close()
			if err := obs.UploadForCommit(groupCtx, target.Project, target.Package, entry.Name, file); err != nil {
				return err
			}
			log.Debug().Str("file", entry.Name).Msg("uploaded")
			uploaded[i] = entry.Name
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return uploaded, nil
}
