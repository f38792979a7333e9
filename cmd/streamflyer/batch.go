package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/amitshokeen/streamflyer/pkg/engine"
	"github.com/amitshokeen/streamflyer/pkg/stream"
	"github.com/amitshokeen/streamflyer/pkg/tokens"
)

// batchJob is one file of a --glob run.
type batchJob struct {
	Input  string
	Output string
}

// planBatch expands pattern and maps each matching file to a path under
// outDir, relative to the non-magic prefix of the pattern.
func planBatch(pattern, outDir string) ([]batchJob, error) {
	if outDir == "" {
		return nil, fmt.Errorf("--glob requires --outdir")
	}

	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
	}

	var jobs []batchJob
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(filepath.FromSlash(base), match)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batchJob{Input: match, Output: filepath.Join(outDir, rel)})
	}

	slices.SortFunc(jobs, func(a, b batchJob) int {
		return strings.Compare(a.Input, b.Input)
	})
	return jobs, nil
}

// runBatch transforms the files of jobs, at most limit at a time. Each file
// gets its own processor; the matcher is shared.
func runBatch(ctx context.Context, jobs []batchJob, m *tokens.Matcher, eopts engine.Options, sopts stream.Options, limit int, logger *slog.Logger) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, job := range jobs {
		g.Go(func() error {
			n, err := transformFile(ctx, job, m, eopts, sopts)
			if err != nil {
				return fmt.Errorf("transforming '%s': %w", job.Input, err)
			}
			logger.Info("transformed", "input", job.Input, "output", job.Output, "bytes", n)
			return nil
		})
	}
	return g.Wait()
}

func transformFile(ctx context.Context, job batchJob, m *tokens.Matcher, eopts engine.Options, sopts stream.Options) (n int64, err error) {
	in, err := os.Open(job.Input)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(job.Output)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	return stream.Transform(ctx, out, in, engine.New(m, eopts), sopts)
}
