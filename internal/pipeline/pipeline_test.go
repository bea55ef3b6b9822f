// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-catalog/internal/ocr"
	"github.com/pdiddy/research-catalog/internal/resolve"
	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(context.Context, string) (string, error) {
	return f.text, f.err
}

type fakeResolver struct {
	res      resolve.Resolution
	err      error
	gotDraft types.PaperDraft
}

func (f *fakeResolver) Resolve(_ context.Context, draft types.PaperDraft) (resolve.Resolution, error) {
	f.gotDraft = draft
	return f.res, f.err
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Recognize(context.Context, string) (string, error) {
	return f.text, f.err
}

type fakeImpact struct {
	factor float64
	err    error
	calls  int
}

func (f *fakeImpact) ImpactFactor(context.Context, string) (float64, error) {
	f.calls++
	return f.factor, f.err
}

const longPaperText = `Attention Is All You Need

Ashish Vaswani Noam Shazeer

Abstract
The dominant sequence transduction models are based on complex recurrent
or convolutional neural networks that include an encoder and a decoder.
We propose a new simple network architecture based solely on attention.
doi:10.1000/test.42
`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(types.CatalogConfig{LibraryDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func addPendingFile(t *testing.T, st *store.Store, kind types.Kind, path string) types.ContentFile {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	f := types.ContentFile{
		Kind: kind, Path: path, SHA256: "hash-" + path, Size: 10,
		ModTime: now, Status: types.StatusPending, LastScannedAt: now,
	}
	require.NoError(t, st.UpsertFile(context.Background(), &f))
	return f
}

func TestPaperResolvedWithHighConfidence(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/attention.pdf")

	resolver := &fakeResolver{res: resolve.Resolution{
		Paper: types.Paper{
			Title:   "Attention Is All You Need",
			Authors: "Vaswani, Ashish; Shazeer, Noam",
			Year:    2017,
			Venue:   "NeurIPS",
			DOI:     "10.1000/test.42",
		},
		Confidence: 100,
		Source:     "doi_lookup",
	}}
	impact := &fakeImpact{factor: 12.3}
	p := New(st, fakeExtractor{text: longPaperText}, resolver, fakeOCR{}, impact, t.TempDir(), nil)

	ctx := context.Background()
	res, err := p.ProcessPending(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Succeeded)

	// Resolver saw the draft's extracted DOI.
	assert.Equal(t, "10.1000/test.42", resolver.gotDraft.DOI)

	got, err := st.FileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, got.Status)

	paper, err := st.PaperByDOI(ctx, "10.1000/test.42")
	require.NoError(t, err)
	assert.Equal(t, 100.0, paper.Confidence)
	assert.Equal(t, "doi_lookup", paper.Source)
	assert.Equal(t, "vaswani2017attention", paper.CiteKey)
	assert.Equal(t, 12.3, paper.ImpactFactor)
	assert.Equal(t, 1, impact.calls)

	files, err := st.FilesForRecord(ctx, types.KindPaper, paper.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, f.ID, files[0].ID)

	text, err := st.FullText(ctx, f.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "sequence transduction")
}

func TestPaperShortTextGoesToOCRQueue(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/scan.pdf")

	p := New(st, fakeExtractor{text: "short"}, &fakeResolver{}, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedsOCR)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsOCR, got.Status)
}

func TestPaperUnreadableFails(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/corrupt.pdf")

	p := New(st, fakeExtractor{err: errors.New("not a PDF header")},
		&fakeResolver{}, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.HasFailures())

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "not a PDF header")
}

func TestPaperResolverOutageGoesToReview(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/p.pdf")

	p := New(st, fakeExtractor{text: longPaperText},
		&fakeResolver{err: errors.New("provider down")}, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedsReview)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsReview, got.Status)
}

func TestPaperWeakMatchKeepsPartialRecord(t *testing.T) {
	st := newTestStore(t)
	addPendingFile(t, st, types.KindPaper, "papers/weak.pdf")

	resolver := &fakeResolver{res: resolve.Resolution{
		Paper:      types.Paper{Title: "Attention Is All You Need"},
		Confidence: 45,
		Source:     "review",
	}}
	p := New(st, fakeExtractor{text: longPaperText}, resolver, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedsReview)

	papers, err := st.ListPapers(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, 45.0, papers[0].Confidence)
	assert.Equal(t, "review", papers[0].Source)
}

func TestPaperNoSignalGoesBackToOCRQueue(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/noise.pdf")

	// Long enough to skip the OCR queue up front, but without any
	// title-shaped line or DOI for the draft.
	noise := strings.Repeat("ab cd ef\n", 40)
	resolver := &fakeResolver{res: resolve.Resolution{Source: "none"}}
	p := New(st, fakeExtractor{text: noise}, resolver, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedsOCR)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsOCR, got.Status)
}

const patentCertText = `发明专利证书
发明名称：一种数据处理方法及装置
发明人：刘杨;张三;李四
专利号：ZL 2022 1 1551727.X
专利申请日：2022年12月05日
专利权人：合肥工业大学
地址：安徽省合肥市
授权公告日：2023年05月12日
授权公告号：CN 116055099 B
`

const softwareCertText = `计算机软件著作权登记证书
软件名称：实验数据管理系统V1.0
著作权人：合肥工业大学
开发完成日期：2023年01月15日
登记号：2023SR0123456
`

func TestCertificateCompletePatent(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPatent, "certs/专利证书.pdf")

	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{text: patentCertText}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	ctx := context.Background()
	patents, err := st.ListPatents(ctx)
	require.NoError(t, err)
	require.Len(t, patents, 1)
	assert.Equal(t, "ZL202211551727.X", patents[0].PatentNumber)
	assert.Equal(t, 95.0, patents[0].Confidence)

	got, err := st.FileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, got.Status)

	text, err := st.FullText(ctx, f.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "专利号")
}

func TestCertificateKindCorrectedByDocument(t *testing.T) {
	st := newTestStore(t)
	// Filename said patent; the document is a software registration.
	f := addPendingFile(t, st, types.KindPatent, "certs/证书扫描.png")

	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{text: softwareCertText}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	ctx := context.Background()
	got, err := st.FileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.KindSoftware, got.Kind)

	softwares, err := st.ListSoftwares(ctx)
	require.NoError(t, err)
	require.Len(t, softwares, 1)
	assert.Equal(t, "2023SR0123456", softwares[0].RegistrationNumber)

	// The link carries the corrected kind.
	files, err := st.FilesForRecord(ctx, types.KindSoftware, softwares[0].ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, f.ID, files[0].ID)
}

func TestCertificateIncompleteGoesToReview(t *testing.T) {
	st := newTestStore(t)
	addPendingFile(t, st, types.KindPatent, "certs/partial.pdf")

	partial := "发明专利证书\n专利号：ZL202211551727.X\n申请日：2022年12月05日\n授权公告日：2023年05月12日\n"
	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{text: partial}, nil, t.TempDir(), nil)
	res, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedsReview)

	// The partial record is still persisted for the reviewer.
	patents, err := st.ListPatents(context.Background())
	require.NoError(t, err)
	require.Len(t, patents, 1)
	assert.Equal(t, 60.0, patents[0].Confidence)
}

func TestCertificateOCRUnconfiguredGoesToReview(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPatent, "certs/cert.png")

	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{err: ocr.ErrNotConfigured}, nil, t.TempDir(), nil)
	_, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsReview, got.Status)

	patents, err := st.ListPatents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, patents)
}

func TestCertificateUnreadableFileFails(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPatent, "certs/missing.png")

	readErr := fmt.Errorf("reading certs/missing.png: %w",
		&fs.PathError{Op: "open", Path: "certs/missing.png", Err: fs.ErrNotExist})
	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{err: readErr}, nil, t.TempDir(), nil)
	_, err := p.ProcessPending(context.Background(), nil)
	require.NoError(t, err)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestRunOCRPassResolvesRecognizedText(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/scan.pdf")
	require.NoError(t, st.SetFileStatus(context.Background(), f.ID, types.StatusNeedsOCR, ""))

	resolver := &fakeResolver{res: resolve.Resolution{
		Paper:      types.Paper{Title: "Attention Is All You Need", DOI: "10.1000/test.42"},
		Confidence: 100,
		Source:     "doi_lookup",
	}}
	p := New(st, fakeExtractor{}, resolver, fakeOCR{text: longPaperText}, nil, t.TempDir(), nil)

	res, err := p.RunOCRPass(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, got.Status)
}

func TestRunOCRPassNoSignalGoesToReviewNotBackToQueue(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/scan.pdf")
	require.NoError(t, st.SetFileStatus(context.Background(), f.ID, types.StatusNeedsOCR, ""))

	// Recognition yields enough text but nothing resolvable; the file
	// must leave the OCR queue instead of cycling through it forever.
	noise := strings.Repeat("ab cd ef\n", 40)
	resolver := &fakeResolver{res: resolve.Resolution{Source: "none"}}
	p := New(st, fakeExtractor{}, resolver, fakeOCR{text: noise}, nil, t.TempDir(), nil)

	res, err := p.RunOCRPass(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedsReview)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsReview, got.Status)

	// A second pass finds an empty queue.
	res, err = p.RunOCRPass(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
}

func TestReindexBackfillsMissingFullText(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	indexed := addPendingFile(t, st, types.KindPaper, "papers/indexed.pdf")
	require.NoError(t, st.SetFileStatus(ctx, indexed.ID, types.StatusSuccess, ""))
	require.NoError(t, st.SaveFullText(ctx, indexed.ID, longPaperText))

	missing := addPendingFile(t, st, types.KindPaper, "papers/missing.pdf")
	require.NoError(t, st.SetFileStatus(ctx, missing.ID, types.StatusSuccess, ""))

	p := New(st, fakeExtractor{text: longPaperText}, &fakeResolver{}, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.Reindex(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Succeeded)

	text, err := st.FullText(ctx, missing.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "sequence transduction")

	// Nothing left to do on a second run.
	res, err = p.Reindex(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
}

func TestReindexSkipsUnreadableFile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := addPendingFile(t, st, types.KindPaper, "papers/corrupt.pdf")
	require.NoError(t, st.SetFileStatus(ctx, f.ID, types.StatusSuccess, ""))

	p := New(st, fakeExtractor{err: errors.New("not a PDF header")},
		&fakeResolver{}, fakeOCR{}, nil, t.TempDir(), nil)
	res, err := p.Reindex(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	// The file's status is untouched; reindex only fills the index.
	got, err := st.FileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, got.Status)
}

func TestRefreshImpactFactorsStampsMissingPapers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	withVenue := types.Paper{Title: "A", Authors: "X", Venue: "NeurIPS", DOI: "10.1/a"}
	require.NoError(t, st.UpsertPaper(ctx, &withVenue))
	noVenue := types.Paper{Title: "B", Authors: "Y", DOI: "10.1/b"}
	require.NoError(t, st.UpsertPaper(ctx, &noVenue))

	impact := &fakeImpact{factor: 7.5}
	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{}, impact, t.TempDir(), nil)

	stamped, err := p.RefreshImpactFactors(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stamped)
	assert.Equal(t, 1, impact.calls)

	got, err := st.PaperByDOI(ctx, "10.1/a")
	require.NoError(t, err)
	assert.Equal(t, 7.5, got.ImpactFactor)

	// The second run serves nothing: the paper is stamped and the venue
	// cached.
	stamped, err = p.RefreshImpactFactors(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stamped)
	assert.Equal(t, 1, impact.calls)
}

func TestRunOCRPassUnconfiguredLeavesQueue(t *testing.T) {
	st := newTestStore(t)
	f := addPendingFile(t, st, types.KindPaper, "papers/scan.pdf")
	require.NoError(t, st.SetFileStatus(context.Background(), f.ID, types.StatusNeedsOCR, ""))

	p := New(st, fakeExtractor{}, &fakeResolver{}, fakeOCR{err: ocr.ErrNotConfigured}, nil, t.TempDir(), nil)
	res, err := p.RunOCRPass(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)

	got, err := st.FileByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsOCR, got.Status)
}

func TestProcessPendingStopsOnCancel(t *testing.T) {
	st := newTestStore(t)
	addPendingFile(t, st, types.KindPaper, "papers/a.pdf")
	addPendingFile(t, st, types.KindPaper, "papers/b.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(st, fakeExtractor{text: longPaperText}, &fakeResolver{}, fakeOCR{}, nil, t.TempDir(), nil)
	_, err := p.ProcessPending(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing was classified after cancellation.
	files, err := st.FilesByStatus(context.Background(), types.KindPaper, types.StatusPending)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
