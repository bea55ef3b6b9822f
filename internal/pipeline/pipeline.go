// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives scanned files from pending to a terminal
// status: resolved paper records, parsed certificate records, or one of
// the review queues. Every pass over a file ends in exactly one status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/research-catalog/internal/extract"
	"github.com/pdiddy/research-catalog/internal/ocr"
	"github.com/pdiddy/research-catalog/internal/resolve"
	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

// Confidence assigned to certificate records parsed from OCR text.
const (
	certificateCompleteConfidence   = 95
	certificateIncompleteConfidence = 60
)

// ImpactSource looks up a venue's impact factor from an external
// provider. A nil source keeps enrichment cache-only.
type ImpactSource interface {
	ImpactFactor(ctx context.Context, venue string) (float64, error)
}

// Resolver matches bibliographic drafts online.
type Resolver interface {
	Resolve(ctx context.Context, draft types.PaperDraft) (resolve.Resolution, error)
}

// Recognizer extracts text from scanned documents.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Pipeline classifies content files.
type Pipeline struct {
	store     *store.Store
	extractor extract.TextExtractor
	resolver  Resolver
	ocr       Recognizer
	impact    ImpactSource
	root      string
	log       *zap.Logger
}

// New builds a Pipeline rooted at the library directory. impact may be
// nil. A nil logger is replaced by a no-op one.
func New(st *store.Store, extractor extract.TextExtractor, resolver Resolver,
	ocrClient Recognizer, impact ImpactSource, root string, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		store:     st,
		extractor: extractor,
		resolver:  resolver,
		ocr:       ocrClient,
		impact:    impact,
		root:      root,
		log:       log,
	}
}

// Result counts classification outcomes of one pass.
type Result struct {
	Processed   int
	Succeeded   int
	NeedsReview int
	NeedsOCR    int
	Failed      int
}

// HasFailures reports whether any file ended up failed.
func (r Result) HasFailures() bool { return r.Failed > 0 }

func (r *Result) count(status types.FileStatus) {
	switch status {
	case types.StatusSuccess:
		r.Succeeded++
	case types.StatusNeedsReview:
		r.NeedsReview++
	case types.StatusNeedsOCR:
		r.NeedsOCR++
	case types.StatusFailed:
		r.Failed++
	}
}

func (p *Pipeline) fullPath(f types.ContentFile) string {
	return filepath.Join(p.root, filepath.FromSlash(f.Path))
}

// ProcessPending classifies every pending file. Cancellation stops
// scheduling new files; the file being classified finishes and its
// status is recorded before the context error is returned.
func (p *Pipeline) ProcessPending(ctx context.Context, progress io.Writer) (Result, error) {
	if progress == nil {
		progress = io.Discard
	}
	var result Result

	for _, kind := range []types.Kind{types.KindPaper, types.KindPatent, types.KindSoftware} {
		files, err := p.store.FilesByStatus(ctx, kind, types.StatusPending)
		if err != nil {
			return result, err
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			var status types.FileStatus
			if f.Kind == types.KindPaper {
				status, err = p.classifyPaper(ctx, f)
			} else {
				status, err = p.classifyCertificate(ctx, f)
			}
			if err != nil {
				return result, err
			}
			result.Processed++
			result.count(status)
			fmt.Fprintf(progress, "%-12s %s\n", status, f.Path)
		}
	}

	p.log.Info("classification pass finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("needs_review", result.NeedsReview),
		zap.Int("needs_ocr", result.NeedsOCR),
		zap.Int("failed", result.Failed))
	return result, nil
}

// classifyPaper extracts text locally and resolves it online. The
// returned status is already persisted.
func (p *Pipeline) classifyPaper(ctx context.Context, f types.ContentFile) (types.FileStatus, error) {
	text, err := p.extractor.ExtractText(ctx, p.fullPath(f))
	if err != nil {
		// Unreadable document: keep the row with the message.
		return p.finish(ctx, f, types.StatusFailed, fmt.Sprintf("extracting text: %v", err))
	}

	if extract.NeedsOCR(text) {
		return p.finish(ctx, f, types.StatusNeedsOCR, "")
	}

	return p.resolveText(ctx, f, text, types.StatusNeedsOCR)
}

// resolveText runs the draft heuristics and the online resolver over
// already-extracted text and persists the outcome. Shared by the paper
// path and the OCR retry pass; noSignal is the status for text yielding
// neither title nor DOI, so the OCR pass never requeues its own output.
func (p *Pipeline) resolveText(ctx context.Context, f types.ContentFile, text string, noSignal types.FileStatus) (types.FileStatus, error) {
	draft := extract.Draft(text)

	res, err := p.resolver.Resolve(ctx, draft)
	if err != nil {
		// Retries are exhausted inside the resolver; what is left is
		// transient provider failure, so the file goes to review.
		p.log.Warn("resolution failed", zap.String("path", f.Path), zap.Error(err))
		return p.finish(ctx, f, types.StatusNeedsReview, "")
	}

	var status types.FileStatus
	switch {
	case res.Confidence >= types.AutoAcceptThreshold:
		status = types.StatusSuccess
	case res.Confidence > 0:
		status = types.StatusNeedsReview
	case draft.Empty():
		status = noSignal
	default:
		status = types.StatusNeedsReview
	}

	if res.Confidence > 0 {
		paper := res.Paper
		paper.Confidence = res.Confidence
		paper.Source = res.Source
		paper.CiteKey = extract.CiteKey(paper.Title, paper.Authors, paper.Year)
		if err := p.store.UpsertPaper(ctx, &paper); err != nil {
			return "", err
		}
		if err := p.store.Bind(ctx, types.KindPaper, paper.ID, f.ID); err != nil {
			return "", err
		}
		if err := p.store.SaveFullText(ctx, f.ID, text); err != nil {
			return "", err
		}
		if status == types.StatusSuccess {
			p.enrichImpactFactor(ctx, &paper)
		}
	}

	return p.finish(ctx, f, status, "")
}

// classifyCertificate recognizes a certificate via OCR and parses its
// fields. The record is persisted even when incomplete; only files whose
// text yields no certificate at all stay recordless.
func (p *Pipeline) classifyCertificate(ctx context.Context, f types.ContentFile) (types.FileStatus, error) {
	text, err := p.ocr.Recognize(ctx, p.fullPath(f))
	if err != nil {
		if errors.Is(err, ocr.ErrNotConfigured) {
			return p.finish(ctx, f, types.StatusNeedsReview, "")
		}
		if isFileError(err) {
			return p.finish(ctx, f, types.StatusFailed, fmt.Sprintf("reading certificate: %v", err))
		}
		p.log.Warn("certificate OCR failed", zap.String("path", f.Path), zap.Error(err))
		return p.finish(ctx, f, types.StatusNeedsReview, "")
	}

	kind, ok := extract.DetectCertificate(text)
	if !ok {
		return p.finish(ctx, f, types.StatusNeedsReview, "")
	}

	// The filename heuristic guessed the kind; the document decides.
	if kind != f.Kind {
		if err := p.store.SetFileKind(ctx, f.ID, kind); err != nil {
			return "", err
		}
		f.Kind = kind
	}

	var recordID int64
	var complete bool
	switch kind {
	case types.KindPatent:
		patent := extract.ParsePatent(text)
		complete = extract.PatentComplete(patent)
		patent.Confidence = certificateConfidence(complete)
		if err := p.store.InsertPatent(ctx, &patent); err != nil {
			return "", err
		}
		recordID = patent.ID
	case types.KindSoftware:
		sw := extract.ParseSoftware(text)
		complete = extract.SoftwareComplete(sw)
		sw.Confidence = certificateConfidence(complete)
		if err := p.store.InsertSoftware(ctx, &sw); err != nil {
			return "", err
		}
		recordID = sw.ID
	}

	if err := p.store.Bind(ctx, kind, recordID, f.ID); err != nil {
		return "", err
	}
	if err := p.store.SaveFullText(ctx, f.ID, text); err != nil {
		return "", err
	}

	if complete {
		return p.finish(ctx, f, types.StatusSuccess, "")
	}
	return p.finish(ctx, f, types.StatusNeedsReview, "")
}

func certificateConfidence(complete bool) float64 {
	if complete {
		return certificateCompleteConfidence
	}
	return certificateIncompleteConfidence
}

// RunOCRPass retries paper files stuck in needs_ocr through the OCR
// engines and resolves the recognized text.
func (p *Pipeline) RunOCRPass(ctx context.Context, progress io.Writer) (Result, error) {
	if progress == nil {
		progress = io.Discard
	}
	var result Result

	files, err := p.store.FilesByStatus(ctx, types.KindPaper, types.StatusNeedsOCR)
	if err != nil {
		return result, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		text, err := p.ocr.Recognize(ctx, p.fullPath(f))
		var status types.FileStatus
		switch {
		case err != nil && errors.Is(err, ocr.ErrNotConfigured):
			// Nothing to run the pass with; the whole queue stays put.
			return result, nil
		case err != nil:
			p.log.Warn("OCR failed", zap.String("path", f.Path), zap.Error(err))
			status, err = p.finish(ctx, f, types.StatusNeedsReview, "")
			if err != nil {
				return result, err
			}
		case extract.NeedsOCR(text):
			// Recognition produced nothing usable either.
			status, err = p.finish(ctx, f, types.StatusNeedsReview, "")
			if err != nil {
				return result, err
			}
		default:
			status, err = p.resolveText(ctx, f, text, types.StatusNeedsReview)
			if err != nil {
				return result, err
			}
		}

		result.Processed++
		result.count(status)
		fmt.Fprintf(progress, "%-12s %s\n", status, f.Path)
	}
	return result, nil
}

// Reindex backfills the full-text index for successful paper files that
// lost or never got an entry, e.g. after a database restore.
func (p *Pipeline) Reindex(ctx context.Context, progress io.Writer) (Result, error) {
	if progress == nil {
		progress = io.Discard
	}
	var result Result

	files, err := p.store.FilesMissingFullText(ctx)
	if err != nil {
		return result, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		text, err := p.extractor.ExtractText(ctx, p.fullPath(f))
		if err != nil || extract.NeedsOCR(text) {
			result.Failed++
			p.log.Warn("reindex skipped file", zap.String("path", f.Path), zap.Error(err))
			fmt.Fprintf(progress, "skipped  %s\n", f.Path)
			continue
		}
		if err := p.store.SaveFullText(ctx, f.ID, text); err != nil {
			return result, err
		}
		result.Succeeded++
		fmt.Fprintf(progress, "indexed  %s\n", f.Path)
	}
	return result, nil
}

// RefreshImpactFactors stamps papers that name a venue but carry no
// impact factor yet, serving from the cache and the external source.
// It returns the number of papers stamped.
func (p *Pipeline) RefreshImpactFactors(ctx context.Context, progress io.Writer) (int, error) {
	if progress == nil {
		progress = io.Discard
	}

	papers, err := p.store.PapersMissingImpactFactor(ctx)
	if err != nil {
		return 0, err
	}
	stamped := 0
	for i := range papers {
		if err := ctx.Err(); err != nil {
			return stamped, err
		}
		paper := &papers[i]
		p.enrichImpactFactor(ctx, paper)
		if paper.ImpactFactor > 0 {
			stamped++
			fmt.Fprintf(progress, "%-8.2f %s\n", paper.ImpactFactor, paper.Venue)
		}
	}
	return stamped, nil
}

// enrichImpactFactor stamps the paper with its venue's impact factor,
// serving from the cache and falling back to the external source. A
// lookup failure only logs: enrichment never blocks classification.
func (p *Pipeline) enrichImpactFactor(ctx context.Context, paper *types.Paper) {
	if paper.Venue == "" || paper.ImpactFactor != 0 {
		return
	}

	factor, cached, err := p.store.ImpactFactor(ctx, paper.Venue)
	if err != nil {
		p.log.Warn("impact factor cache lookup failed", zap.Error(err))
		return
	}
	if !cached {
		if p.impact == nil {
			return
		}
		factor, err = p.impact.ImpactFactor(ctx, paper.Venue)
		if err != nil {
			p.log.Warn("impact factor lookup failed",
				zap.String("venue", paper.Venue), zap.Error(err))
			return
		}
		if err := p.store.SaveImpactFactor(ctx, paper.Venue, factor); err != nil {
			p.log.Warn("impact factor cache write failed", zap.Error(err))
		}
	}
	if factor <= 0 {
		return
	}
	if err := p.store.SetPaperImpactFactor(ctx, paper.ID, factor); err != nil {
		p.log.Warn("stamping impact factor failed", zap.Error(err))
		return
	}
	paper.ImpactFactor = factor
}

// isFileError reports whether an OCR failure happened before any engine
// ran, i.e. the document itself could not be read.
func isFileError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

func (p *Pipeline) finish(ctx context.Context, f types.ContentFile, status types.FileStatus, errMsg string) (types.FileStatus, error) {
	if err := p.store.SetFileStatus(ctx, f.ID, status, errMsg); err != nil {
		return "", err
	}
	return status, nil
}
