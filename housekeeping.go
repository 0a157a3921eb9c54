package assetguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/gobeaver/assetguard/filevalidator"
	"github.com/gobwas/glob"
)

// Housekeeper finds and removes stored assets that no record references,
// such as files left behind by replaced attachments or abandoned saves.
type Housekeeper struct {
	fs       FileSystem
	root     string
	logger   *slog.Logger
	patterns map[filevalidator.AssetKind]glob.Glob
	now      func() time.Time
}

// Housekeeper returns a Housekeeper over the ingestor's storage layout.
func (g *Ingestor) Housekeeper() *Housekeeper {
	h := &Housekeeper{
		fs:       g.fs,
		root:     g.root,
		logger:   g.logger.With("task", "housekeeping"),
		patterns: make(map[filevalidator.AssetKind]glob.Glob, len(kindDirs)),
		now:      time.Now,
	}
	for kind, dir := range kindDirs {
		p, ok := g.pipeline.Policy(kind)
		if !ok || len(p.AllowedExtensions) == 0 {
			continue
		}
		pattern := path.Join(g.root, dir) + "/*.{" + strings.Join(p.AllowedExtensions, ",") + "}"
		h.patterns[kind] = glob.MustCompile(pattern, '/')
	}
	return h
}

// Orphans lists stored assets of kind whose reference is not in referenced.
// Objects under the kind's directory that the ingestor could not have written
// (other extensions, nested paths) are ignored.
func (h *Housekeeper) Orphans(ctx context.Context, kind filevalidator.AssetKind, referenced []string) ([]FileInfo, error) {
	pattern, ok := h.patterns[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", filevalidator.ErrUnsupportedKind, kind)
	}

	files, err := h.fs.List(ctx, path.Join(h.root, kindDirs[kind]))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s assets: %w", kind, err)
	}

	keep := make(map[string]struct{}, len(referenced))
	for _, ref := range referenced {
		keep[ref] = struct{}{}
	}

	var orphans []FileInfo
	for _, f := range files {
		if !pattern.Match(f.Path) {
			continue
		}
		if _, ok := keep[f.Path]; ok {
			continue
		}
		orphans = append(orphans, f)
	}
	return orphans, nil
}

// Prune deletes orphans of kind last modified at least olderThan ago and
// returns their references. A zero olderThan prunes every orphan. Uploads
// whose record has not been saved yet look like orphans, so callers normally
// pass a grace period.
func (h *Housekeeper) Prune(ctx context.Context, kind filevalidator.AssetKind, referenced []string, olderThan time.Duration) ([]string, error) {
	orphans, err := h.Orphans(ctx, kind, referenced)
	if err != nil {
		return nil, err
	}

	cutoff := h.now().Add(-olderThan)
	var (
		removed []string
		errs    []error
	)
	for _, f := range orphans {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if olderThan > 0 && f.ModTime.After(cutoff) {
			continue
		}
		if err := h.fs.Delete(ctx, f.Path); err != nil && !IsNotExist(err) {
			h.logger.Warn("failed to prune orphan", "kind", kind, "reference", f.Path, "error", err)
			errs = append(errs, err)
			continue
		}
		removed = append(removed, f.Path)
	}

	if len(removed) > 0 {
		h.logger.Info("pruned orphaned assets", "kind", kind, "count", len(removed))
	}
	return removed, errors.Join(errs...)
}
