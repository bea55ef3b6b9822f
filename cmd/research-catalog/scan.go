// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-catalog/internal/extract"
	"github.com/pdiddy/research-catalog/internal/ocr"
	"github.com/pdiddy/research-catalog/internal/pipeline"
	"github.com/pdiddy/research-catalog/internal/resolve"
	"github.com/pdiddy/research-catalog/internal/scanner"
	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Discover library files and classify them into the catalog",
	Long: `Scan walks the library directory, hashes every recognized file, and
records new and changed files as pending. Unless --no-classify is set it
then drives every pending file through the classification pipeline:
local text extraction and online resolution for papers, OCR and field
parsing for certificates. Files stuck in needs_ocr are retried when
--ocr is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Bool("no-classify", false, "only discover and hash files, skip classification")
	scanCmd.Flags().Bool("ocr", false, "also retry papers waiting in the needs_ocr queue")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	root := cfg.Catalog.LibraryDir
	if len(args) == 1 {
		root = args[0]
		cfg.Catalog.LibraryDir = root
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	log := newLogger()
	defer log.Sync()

	ctx := cmd.Context()

	sum, err := scanner.New(st, cfg.Scan, log).Scan(ctx, root, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\nScan summary: %d scanned, %d new, %d updated, %d unchanged, %d failed\n",
		sum.Scanned, sum.New, sum.Updated, sum.Unchanged, sum.Failed)

	noClassify, _ := cmd.Flags().GetBool("no-classify")
	if noClassify {
		return nil
	}

	p := newPipeline(st, cfg)
	result, err := p.ProcessPending(ctx, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\nClassification summary: %d processed, %d succeeded, %d needs review, %d need OCR, %d failed\n",
		result.Processed, result.Succeeded, result.NeedsReview, result.NeedsOCR, result.Failed)

	runOCR, _ := cmd.Flags().GetBool("ocr")
	if runOCR {
		ocrResult, err := p.RunOCRPass(ctx, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("\nOCR pass: %d processed, %d succeeded, %d needs review\n",
			ocrResult.Processed, ocrResult.Succeeded, ocrResult.NeedsReview)
	}

	if sum.HasFailures() || result.HasFailures() {
		return fmt.Errorf("some files failed; see the listing above")
	}
	return nil
}

// newPipeline wires the classification stages from one config.
func newPipeline(st *store.Store, cfg types.PipelineConfig) *pipeline.Pipeline {
	log := newLogger()
	client := newHTTPClient(cfg.Resolver.HTTPConfig)

	extractor := &extract.Pdftotext{
		Binary:   cfg.Extract.PdftotextPath,
		MaxPages: cfg.Extract.MaxPages,
	}
	resolver := resolve.New(client, cfg.Resolver, log)
	recognizer := ocr.New(newHTTPClient(cfg.OCR.HTTPConfig), cfg.OCR, log)

	// Impact factors come from the local cache; no external provider is
	// wired by default.
	return pipeline.New(st, extractor, resolver, recognizer, nil, cfg.Catalog.LibraryDir, log)
}
