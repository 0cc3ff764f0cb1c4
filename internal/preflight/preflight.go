package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voxclip/internal/config"
	"voxclip/internal/deps"
	"voxclip/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks a split requires: writable roots, free
// space on the active root, and the acquisition binaries.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Active directory", cfg.Paths.ActiveDir),
		CheckDirectoryAccess("Completed directory", cfg.Paths.CompletedDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Fetch.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace(ctx, "Active disk space", cfg.Paths.ActiveDir, cfg.Fetch.MinFreeGiB))
	}
	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}

// Err collapses failed results into a configuration error, or nil when every
// check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "run checks", strings.Join(failed, "; "), errors.New("preflight failed"))
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the pipeline and the doctor command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}
