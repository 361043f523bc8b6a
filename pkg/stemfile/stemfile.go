// Package stemfile provides the file-level read-modify-write wrapper
// around pkg/mp4's byte-buffer operations: atomic single-file mutation
// (with an optional backup) and concurrent batch track extraction.
package stemfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/errgroup"

	"github.com/monteslu/m4a-stems/pkg/mp4"
)

// Mutate reads path, applies mutate to its bytes, and atomically
// replaces path with the result via a temp-file-plus-rename (see
// atomicWrite).
func Mutate(path string, mutate func([]byte) ([]byte, error)) error {
	input, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}

	output, err := mutate(input)
	if err != nil {
		return errors.WithStack(err)
	}

	return atomicWrite(path, output)
}

// MutateWithBackup behaves like Mutate but first copies path to
// path+backupSuffix, so a failed or regretted mutation can be reverted.
func MutateWithBackup(path, backupSuffix string, mutate func([]byte) ([]byte, error)) error {
	input, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := os.WriteFile(path+backupSuffix, input, 0600); err != nil {
		return errors.Wrap(err, "failed to write backup")
	}

	output, err := mutate(input)
	if err != nil {
		return errors.WithStack(err)
	}

	return atomicWrite(path, output)
}

// atomicWrite writes data to a uuid-suffixed temp file alongside path,
// then renames it into place, so a crash mid-write never leaves a
// truncated file at path.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.WithStack(err)
	}
	return nil
}

// BatchExtract extracts every track meeting ExtractAllTracks's sample-
// count heuristic from srcPath and writes each to its own file under
// outDir, named "<basename>.trackNN.m4a", up to maxConcurrent
// synthesis/writes in flight at once. log receives per-track
// skip/failure notices.
func BatchExtract(ctx context.Context, srcPath, outDir string, maxConcurrent int, log logger.Logger) ([]string, error) {
	input, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	infos, err := mp4.GetTrackInfo(input)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, errors.WithStack(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	paths := make([]string, len(infos))
	for _, info := range infos {
		info := info
		if info.Error != "" || info.SampleCount < 100 {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			trackBytes, err := mp4.ExtractTrack(input, info.Index)
			if err != nil {
				log.Warn("skipping track: extraction failed", logger.Data{"track_index": info.Index, "error": err.Error()})
				return nil
			}
			outPath := filepath.Join(outDir, fmt.Sprintf("%s.track%02d.m4a", stem, info.Index))
			if err := os.WriteFile(outPath, trackBytes, 0600); err != nil {
				return errors.WithStack(err)
			}
			paths[info.Index] = outPath
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
