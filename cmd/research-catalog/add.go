// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-catalog/internal/acquire"
	"github.com/pdiddy/research-catalog/internal/extract"
	"github.com/pdiddy/research-catalog/internal/resolve"
	"github.com/pdiddy/research-catalog/pkg/types"
)

var addCmd = &cobra.Command{
	Use:   "add <doi-or-title>",
	Short: "Add a paper by DOI or title",
	Long: `Add resolves a DOI or a title against CrossRef and OpenAlex and
creates a paper record. A record below the auto-accept threshold is
still created, marked for review. With --download the open-access PDF,
when one exists, is saved into the library and bound to the record.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().Bool("download", false, "download the open-access PDF into the library")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	log := newLogger()
	defer log.Sync()

	ctx := cmd.Context()
	identifier := strings.TrimSpace(args[0])

	var draft types.PaperDraft
	if strings.HasPrefix(identifier, "10.") && strings.Contains(identifier, "/") {
		draft.DOI = strings.ToLower(identifier)
	} else {
		draft.Title = identifier
	}

	resolver := resolve.New(newHTTPClient(cfg.Resolver.HTTPConfig), cfg.Resolver, log)
	res, err := resolver.Resolve(ctx, draft)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", identifier, err)
	}

	paper := res.Paper
	if paper.Title == "" {
		paper.Title = draft.Title
	}
	if res.Confidence == 0 {
		// Nothing matched online; keep the user's entry for review.
		paper.Source = "manual"
	} else {
		paper.Source = res.Source
	}
	paper.Confidence = res.Confidence
	paper.CiteKey = extract.CiteKey(paper.Title, paper.Authors, paper.Year)

	if err := st.UpsertPaper(ctx, &paper); err != nil {
		return err
	}

	fmt.Printf("added paper %d: %s\n", paper.ID, paper.Title)
	fmt.Printf("  confidence %.0f (%s)", paper.Confidence, paper.Source)
	if paper.Confidence < types.AutoAcceptThreshold {
		fmt.Print("  — needs review")
	}
	fmt.Println()

	download, _ := cmd.Flags().GetBool("download")
	if !download {
		return nil
	}
	if paper.DOI == "" {
		return fmt.Errorf("cannot download: no DOI resolved for %q", identifier)
	}

	d := acquire.New(newHTTPClient(cfg.Acquire.HTTPConfig), cfg.Acquire, cfg.Resolver.Mailto, log)
	relPath, err := d.DownloadPDF(ctx, cfg.Catalog.LibraryDir, paper.DOI)
	if err != nil {
		return err
	}
	fmt.Printf("downloaded %s\n", relPath)

	f, err := fileRowFor(cfg.Catalog.LibraryDir, relPath)
	if err != nil {
		return err
	}
	// The record is already resolved, so the file skips the pipeline.
	f.Status = types.StatusSuccess
	if err := st.UpsertFile(ctx, &f); err != nil {
		return err
	}
	return st.Bind(ctx, types.KindPaper, paper.ID, f.ID)
}

// fileRowFor hashes a library file into a ContentFile row.
func fileRowFor(root, relPath string) (types.ContentFile, error) {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	fh, err := os.Open(full)
	if err != nil {
		return types.ContentFile{}, err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return types.ContentFile{}, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return types.ContentFile{}, err
	}

	return types.ContentFile{
		Kind:          types.KindPaper,
		Path:          relPath,
		SHA256:        hex.EncodeToString(h.Sum(nil)),
		Size:          info.Size(),
		ModTime:       info.ModTime().UTC().Truncate(time.Second),
		LastScannedAt: time.Now().UTC(),
	}, nil
}
