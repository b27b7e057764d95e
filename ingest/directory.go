package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern selects analysis exports in directory mode.
const DefaultPattern = "*.json"

// DirectoryResult aggregates the imports of one directory.
type DirectoryResult struct {
	Files      int        `json:"files"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Statistics Statistics `json:"statistics"`
	TotalNodes int        `json:"total_nodes"`

	// Errors are prefixed with the file they came from.
	Errors  []string `json:"errors"`
	Results []Result `json:"results"`
}

// TopErrors returns at most n errors for display.
func (r DirectoryResult) TopErrors(n int) []string {
	if n < 0 || len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}

// MatchPattern reports whether name matches a shell-style pattern,
// ignoring case. "*" and "*.*" match every file.
func MatchPattern(pattern, name string) (bool, error) {
	if pattern == "" || pattern == "*" || pattern == "*.*" {
		return true, nil
	}
	ok, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	return ok, nil
}

// ListFiles returns the regular files in dir whose names match pattern,
// sorted by name. Subdirectories are not descended into.
func ListFiles(dir, pattern string) ([]string, error) {
	if _, err := MatchPattern(pattern, ""); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := MatchPattern(pattern, e.Name()); ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ImportDirectory imports every matching file in dir, one at a time.
// Cancellation is honoured between files only: the file in progress runs
// to completion on a context detached from ctx's cancellation, and the
// partial result is returned with ctx's error.
func (im *Importer) ImportDirectory(ctx context.Context, dir, pattern string) (DirectoryResult, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := ListFiles(dir, pattern)
	if err != nil {
		return DirectoryResult{}, err
	}

	out := DirectoryResult{Files: len(files), Errors: []string{}}
	im.opts.logger.Info("importing directory", "dir", dir, "pattern", pattern, "files", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			out.TotalNodes = out.Statistics.TotalNodes()
			return out, err
		}
		if i > 0 && i%im.opts.batchSize == 0 {
			im.opts.logger.Info("directory import progress", "done", i, "files", len(files))
		}

		res, err := im.ImportFile(context.WithoutCancel(ctx), path)
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		out.Results = append(out.Results, res)
		out.Statistics.Add(res.Statistics)
		if res.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", path, e))
		}
	}

	out.TotalNodes = out.Statistics.TotalNodes()
	return out, ctx.Err()
}
