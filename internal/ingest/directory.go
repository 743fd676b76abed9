package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// ScanOptions tunes ScanDirectory.
type ScanOptions struct {
	IncludeExts []string          // defaults to constants.AllowedExtensions
	SkipHidden  bool              // skip dot files, dot dirs and Office lock files
	Ignore      func(string) bool // e.g. files the tool wrote itself
}

// ScanDirectory walks root, filters by extension and returns matching file
// paths in lexical order with aggregate stats. Unreadable entries are counted
// as failed and the walk continues.
func ScanDirectory(root string, opts ScanOptions) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	exts := extSet(opts.IncludeExts)

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files if requested
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		// only files
		if d.IsDir() {
			return nil
		}
		if !allowed(path, exts) {
			return nil
		}
		if opts.Ignore != nil && opts.Ignore(path) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}
