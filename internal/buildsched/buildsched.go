// Package buildsched builds index artifacts for every container file under
// a directory, choosing its concurrency from the storage medium: parallel
// workers on flash, strictly sequential on spinning disks (and on anything
// the probe cannot classify).
package buildsched

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/basecall-labs/sigseek/internal/container"
	"github.com/basecall-labs/sigseek/internal/medium"
	"github.com/basecall-labs/sigseek/internal/sigidx"
	"github.com/basecall-labs/sigseek/internal/utils"

	"github.com/basecall-labs/sigseek/api"
)

// Options configures BuildAll.
type Options struct {
	// MaxWorkers overrides the medium-based concurrency decision.
	// 0 means auto: probe the medium at dir, sequential for rotating or
	// unknown, one worker per CPU for non-rotating.
	MaxWorkers int
	// Force rebuilds artifacts that already exist.
	Force bool
	Log   utils.Logger
}

// BuildAll discovers container files under dir (sorted), computes the set
// still lacking artifacts (or all of them with Force), and builds each.
//
// The sequential path runs in sorted order on the caller and stops at the
// first failure. The parallel path isolates failures: each is logged and
// its siblings run to completion, so one corrupt file cannot block an index
// warm-up over the rest of the corpus. The returned slice lists every
// container the pass attempted.
func BuildAll(dir string, opts Options) ([]string, error) {
	log := utils.Or(opts.Log)

	files, err := container.Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("no container files found", "dir", dir)
		return nil, nil
	}

	targets := files
	if !opts.Force {
		targets = make([]string, 0, len(files))
		for _, f := range files {
			if _, err := os.Stat(sigidx.ArtifactPath(f)); err != nil {
				targets = append(targets, f)
			}
		}
	}
	if len(targets) == 0 {
		log.Info("all index artifacts already exist, nothing to build")
		return nil, nil
	}
	log.Info("index build pass", "pending", len(targets), "total", len(files), "dir", dir)

	workers := opts.MaxWorkers
	if workers <= 0 {
		switch m := medium.Probe(dir); m {
		case api.MediumNonRotating:
			workers = runtime.NumCPU()
			log.Debug("non-rotating medium, parallel build", "workers", workers)
		default:
			workers = 1
			log.Debug("sequential build", "medium", m.String())
		}
	}

	if workers == 1 {
		for _, f := range targets {
			if err := buildOne(f, opts.Force, log); err != nil {
				return targets, err
			}
		}
		return targets, nil
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, f := range targets {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := buildOne(f, opts.Force, log); err != nil {
				log.Error("index build failed", "container", f, "error", err)
			}
		}(f)
	}
	wg.Wait()
	return targets, nil
}

// buildOne builds and saves the artifact for one container. Without force
// it re-checks artifact existence first, so a stale directory scan (or a
// racing builder) turns into a cheap skip rather than a duplicate build.
func buildOne(path string, force bool, log utils.Logger) error {
	artifact := sigidx.ArtifactPath(path)
	if !force {
		if _, err := os.Stat(artifact); err == nil {
			log.Debug("artifact already exists, skipping", "artifact", artifact)
			return nil
		}
	}
	idx, err := sigidx.New(path)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()
	if err := idx.Build(); err != nil {
		return err
	}
	if err := idx.Save(artifact); err != nil {
		return fmt.Errorf("save artifact %s: %w", artifact, err)
	}
	log.Info("built index", "artifact", artifact)
	return nil
}
