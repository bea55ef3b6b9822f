// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scanner walks the library directory and keeps the content file
// table in sync with what is on disk. Hashing runs in a bounded worker
// pool; store writes stay on the calling goroutine.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

const defaultHashWorkers = 4

// recognizedExts maps file extensions the scanner picks up. Images are
// always certificates; PDFs split on filename cues.
var recognizedExts = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
}

var certificateCues = []string{"patent", "certificate", "专利", "证书", "软著"}

// KindForFile assigns the catalog kind from the filename alone. Images
// and PDFs carrying certificate cues are certificates; 软著 names them
// software registrations directly, everything else starts as patent
// until the OCR classifier reads the document. Plain PDFs are papers.
func KindForFile(filename string) types.Kind {
	lower := strings.ToLower(filename)
	ext := filepath.Ext(lower)

	isCertificate := ext != ".pdf"
	for _, cue := range certificateCues {
		if strings.Contains(lower, cue) {
			isCertificate = true
			break
		}
	}
	if !isCertificate {
		return types.KindPaper
	}
	if strings.Contains(lower, "软著") {
		return types.KindSoftware
	}
	return types.KindPatent
}

// Summary counts the outcome of one scan pass.
type Summary struct {
	Scanned   int
	New       int
	Updated   int
	Unchanged int
	Failed    int
}

// HasFailures reports whether any file could not be read or stored.
func (s Summary) HasFailures() bool { return s.Failed > 0 }

// Scanner discovers library files and upserts them into the store.
type Scanner struct {
	store *store.Store
	cfg   types.ScanConfig
	log   *zap.Logger
}

// New builds a Scanner. A nil logger is replaced by a no-op one.
func New(st *store.Store, cfg types.ScanConfig, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{store: st, cfg: cfg, log: log}
}

type hashed struct {
	relPath string
	kind    types.Kind
	sha256  string
	size    int64
	modTime time.Time
	err     error
}

// Scan walks root, hashes every recognized file in parallel, and brings
// the store up to date: new and changed files land as pending, unchanged
// files only refresh their scan timestamp. Vanished paths are left
// alone. Progress lines go to progress when non-nil.
func (s *Scanner) Scan(ctx context.Context, root string, progress io.Writer) (Summary, error) {
	if progress == nil {
		progress = io.Discard
	}

	paths, err := s.collect(root)
	if err != nil {
		return Summary{}, fmt.Errorf("walking %s: %w", root, err)
	}

	workers := s.cfg.HashWorkers
	if workers <= 0 {
		workers = defaultHashWorkers
	}

	results := make([]hashed, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, relPath := range paths {
		i, relPath := i, relPath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = hashFile(root, relPath)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("hashing files: %w", err)
	}

	var summary Summary
	now := time.Now().UTC()
	for _, r := range results {
		summary.Scanned++
		if r.err != nil {
			summary.Failed++
			s.log.Warn("skipping unreadable file", zap.String("path", r.relPath), zap.Error(r.err))
			fmt.Fprintf(progress, "failed   %s: %v\n", r.relPath, r.err)
			continue
		}

		// Look up by path alone: a kind corrected by the classifier
		// must not be undone by the filename heuristic on rescan.
		existing, err := s.store.FileByPathAnyKind(ctx, r.relPath)
		switch {
		case err == nil && !existing.Changed(r.sha256, r.size, r.modTime):
			if err := s.store.TouchFile(ctx, existing.ID, now); err != nil {
				return summary, err
			}
			summary.Unchanged++

		case err == nil:
			f := existing
			f.SHA256 = r.sha256
			f.Size = r.size
			f.ModTime = r.modTime
			f.Status = types.StatusPending
			f.Error = ""
			f.LastScannedAt = now
			if err := s.store.UpsertFile(ctx, &f); err != nil {
				return summary, err
			}
			summary.Updated++
			fmt.Fprintf(progress, "updated  %s\n", r.relPath)

		default:
			f := types.ContentFile{
				Kind:          r.kind,
				Path:          r.relPath,
				SHA256:        r.sha256,
				Size:          r.size,
				ModTime:       r.modTime,
				Status:        types.StatusPending,
				LastScannedAt: now,
			}
			if err := s.store.UpsertFile(ctx, &f); err != nil {
				return summary, err
			}
			summary.New++
			fmt.Fprintf(progress, "new      %s (%s)\n", r.relPath, r.kind)
		}
	}

	s.log.Info("scan pass finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("new", summary.New),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// collect lists recognized files under root as root-relative paths,
// honoring the excluded folder list.
func (s *Scanner) collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel != "." && (s.excluded(rel) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if recognizedExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	return paths, err
}

func (s *Scanner) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, ex := range s.cfg.ExcludedFolders {
		ex = strings.Trim(filepath.ToSlash(ex), "/")
		if ex == "" {
			continue
		}
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

func hashFile(root, relPath string) hashed {
	r := hashed{relPath: relPath, kind: KindForFile(filepath.Base(relPath))}

	full := filepath.Join(root, filepath.FromSlash(relPath))
	f, err := os.Open(full)
	if err != nil {
		r.err = err
		return r
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		r.err = err
		return r
	}
	r.size = info.Size()
	r.modTime = info.ModTime().UTC().Truncate(time.Second)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		r.err = err
		return r
	}
	r.sha256 = hex.EncodeToString(h.Sum(nil))
	return r
}

// Missing lists stored files whose path no longer exists under root.
// Nothing is deleted; the listing feeds the maintenance command.
func (s *Scanner) Missing(ctx context.Context, root string) ([]types.ContentFile, error) {
	files, err := s.store.ListFiles(ctx, "")
	if err != nil {
		return nil, err
	}
	var missing []types.ContentFile
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f.Path))
		if _, err := os.Stat(full); os.IsNotExist(err) {
			missing = append(missing, f)
		}
	}
	return missing, nil
}
