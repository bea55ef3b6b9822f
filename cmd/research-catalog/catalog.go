// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-catalog/internal/extract"
	"github.com/pdiddy/research-catalog/internal/scanner"
	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage catalog records, file links, and tags",
}

func init() {
	catalogTagCmd.Flags().String("color", "", "hex color for a newly created tag")

	catalogEditCmd.Flags().String("title", "", "record title")
	catalogEditCmd.Flags().String("authors", "", "paper authors (Family, Given; ...)")
	catalogEditCmd.Flags().Int("year", 0, "paper publication year")
	catalogEditCmd.Flags().String("venue", "", "paper venue")
	catalogEditCmd.Flags().String("doi", "", "paper DOI")
	catalogEditCmd.Flags().String("notes", "", "paper notes")
	catalogEditCmd.Flags().String("number", "", "patent number (ZL... form)")
	catalogEditCmd.Flags().String("inventors", "", "patent inventors")
	catalogEditCmd.Flags().String("patentee", "", "patent holder")
	catalogEditCmd.Flags().String("name", "", "software name")
	catalogEditCmd.Flags().String("reg-number", "", "software registration number")
	catalogEditCmd.Flags().String("version", "", "software version")
	catalogEditCmd.Flags().String("holder", "", "software copyright holder")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogEditCmd)
	catalogCmd.AddCommand(catalogDeleteCmd)
	catalogCmd.AddCommand(catalogBindCmd)
	catalogCmd.AddCommand(catalogUnbindCmd)
	catalogCmd.AddCommand(catalogTagCmd)
	catalogCmd.AddCommand(catalogUntagCmd)
	catalogCmd.AddCommand(catalogRenameCmd)
	catalogCmd.AddCommand(catalogMissingCmd)
	catalogCmd.AddCommand(catalogReindexCmd)
	catalogCmd.AddCommand(catalogRefreshImpactCmd)

	rootCmd.AddCommand(catalogCmd)
}

// parseKind validates a kind argument.
func parseKind(arg string) (types.Kind, error) {
	k := types.Kind(arg)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q (want paper, patent, or software)", arg)
	}
	return k, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// withStore opens the store for a subcommand run.
func withStore(fn func(ctx context.Context, st *store.Store, cfg types.PipelineConfig) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(cmd.Context(), st, cfg)
	}
}

var catalogListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List catalog records, optionally one kind",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var kind types.Kind
		if len(args) == 1 {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			kind = k
		}
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if kind == "" || kind == types.KindPaper {
				papers, err := st.ListPapers(ctx)
				if err != nil {
					return err
				}
				for _, p := range papers {
					fmt.Fprintf(w, "paper\t%d\t%.0f\t%d\t%s\n", p.ID, p.Confidence, p.Year, p.Title)
				}
			}
			if kind == "" || kind == types.KindPatent {
				patents, err := st.ListPatents(ctx)
				if err != nil {
					return err
				}
				for _, p := range patents {
					fmt.Fprintf(w, "patent\t%d\t%.0f\t%s\t%s\n", p.ID, p.Confidence, p.PatentNumber, p.Title)
				}
			}
			if kind == "" || kind == types.KindSoftware {
				softwares, err := st.ListSoftwares(ctx)
				if err != nil {
					return err
				}
				for _, s := range softwares {
					fmt.Fprintf(w, "software\t%d\t%.0f\t%s\t%s\n", s.ID, s.Confidence, s.RegistrationNumber, s.SoftwareName)
				}
			}
			return nil
		})(cmd, args)
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <kind> <id>",
	Short: "Show one record with its files and tags",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			switch kind {
			case types.KindPaper:
				p, err := st.PaperByID(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("paper %d: %s\n", p.ID, p.Title)
				fmt.Printf("  authors:    %s\n", p.Authors)
				fmt.Printf("  year/venue: %d / %s\n", p.Year, p.Venue)
				if p.DOI != "" {
					fmt.Printf("  doi:        %s\n", p.DOI)
				}
				if p.CiteKey != "" {
					fmt.Printf("  cite key:   %s\n", p.CiteKey)
				}
				if p.ImpactFactor > 0 {
					fmt.Printf("  impact:     %.2f\n", p.ImpactFactor)
				}
				fmt.Printf("  confidence: %.0f (%s)\n", p.Confidence, p.Source)
			case types.KindPatent:
				p, err := st.PatentByID(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("patent %d: %s\n", p.ID, p.Title)
				fmt.Printf("  number:     %s\n", p.PatentNumber)
				fmt.Printf("  type:       %s\n", p.PatentType)
				fmt.Printf("  inventors:  %s\n", p.Inventors)
				fmt.Printf("  patentee:   %s\n", p.Patentee)
				fmt.Printf("  dates:      applied %s, granted %s\n", p.ApplicationDate, p.GrantDate)
				fmt.Printf("  confidence: %.0f\n", p.Confidence)
			case types.KindSoftware:
				s, err := st.SoftwareByID(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("software %d: %s\n", s.ID, s.SoftwareName)
				fmt.Printf("  reg number: %s\n", s.RegistrationNumber)
				fmt.Printf("  version:    %s\n", s.Version)
				fmt.Printf("  holder:     %s\n", s.CopyrightHolder)
				fmt.Printf("  developed:  %s\n", s.DevelopmentDate)
				fmt.Printf("  confidence: %.0f\n", s.Confidence)
			}

			files, err := st.FilesForRecord(ctx, kind, id)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Printf("  file:       %s (%s)\n", f.Path, f.Status)
			}
			if kind == types.KindPaper {
				for _, f := range files {
					text, err := st.FullText(ctx, f.ID)
					if err != nil {
						continue
					}
					if emails := extract.ExtractEmails(text); len(emails) > 0 {
						fmt.Printf("  contact:    %s\n", strings.Join(emails, ", "))
						break
					}
				}
			}
			tags, err := st.TagsForRecord(ctx, kind, id)
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Printf("  tag:        %s\n", t.Name)
			}
			return nil
		})(cmd, args)
	},
}

var catalogEditCmd = &cobra.Command{
	Use:   "edit <kind> <id>",
	Short: "Update record fields from flags",
	Long: `Edit applies the provided flags to one record. Unset flags leave the
corresponding fields alone. Editing marks the record as manually
curated: confidence goes to 100 with source "manual".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		flagStr := func(name string) (string, bool) {
			v, _ := cmd.Flags().GetString(name)
			return v, cmd.Flags().Changed(name)
		}
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			switch kind {
			case types.KindPaper:
				p, err := st.PaperByID(ctx, id)
				if err != nil {
					return err
				}
				if v, ok := flagStr("title"); ok {
					p.Title = v
				}
				if v, ok := flagStr("authors"); ok {
					p.Authors = v
				}
				if cmd.Flags().Changed("year") {
					p.Year, _ = cmd.Flags().GetInt("year")
				}
				if v, ok := flagStr("venue"); ok {
					p.Venue = v
				}
				if v, ok := flagStr("doi"); ok {
					p.DOI = strings.ToLower(strings.TrimSpace(v))
				}
				if v, ok := flagStr("notes"); ok {
					p.Notes = v
				}
				p.Confidence = 100
				p.Source = "manual"
				p.CiteKey = extract.CiteKey(p.Title, p.Authors, p.Year)
				if err := st.UpdatePaper(ctx, &p); err != nil {
					return err
				}
			case types.KindPatent:
				p, err := st.PatentByID(ctx, id)
				if err != nil {
					return err
				}
				if v, ok := flagStr("title"); ok {
					p.Title = v
				}
				if v, ok := flagStr("number"); ok {
					if err := extract.ValidatePatentNumber(v); err != nil {
						return err
					}
					p.PatentNumber = strings.ToUpper(strings.TrimSpace(v))
				}
				if v, ok := flagStr("inventors"); ok {
					p.Inventors = v
				}
				if v, ok := flagStr("patentee"); ok {
					p.Patentee = v
				}
				p.Confidence = 100
				if err := st.UpdatePatent(ctx, &p); err != nil {
					return err
				}
			case types.KindSoftware:
				s, err := st.SoftwareByID(ctx, id)
				if err != nil {
					return err
				}
				if v, ok := flagStr("name"); ok {
					s.SoftwareName = v
				}
				if v, ok := flagStr("title"); ok {
					s.Title = v
				}
				if v, ok := flagStr("reg-number"); ok {
					s.RegistrationNumber = v
				}
				if v, ok := flagStr("version"); ok {
					s.Version = v
				}
				if v, ok := flagStr("holder"); ok {
					s.CopyrightHolder = v
				}
				s.Confidence = 100
				if err := st.UpdateSoftware(ctx, &s); err != nil {
					return err
				}
			}
			fmt.Printf("updated %s %d\n", kind, id)
			return nil
		})(cmd, args)
	},
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete <kind> <id>",
	Short: "Delete a record; its files stay cataloged",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			if err := st.DeleteRecord(ctx, kind, id); err != nil {
				return err
			}
			fmt.Printf("deleted %s %d\n", kind, id)
			return nil
		})(cmd, args)
	},
}

var catalogBindCmd = &cobra.Command{
	Use:   "bind <kind> <record-id> <file-id>",
	Short: "Link a file to a record of the same kind",
	Args:  cobra.ExactArgs(3),
	RunE:  runBindUnbind(true),
}

var catalogUnbindCmd = &cobra.Command{
	Use:   "unbind <kind> <record-id> <file-id>",
	Short: "Remove a file-record link",
	Args:  cobra.ExactArgs(3),
	RunE:  runBindUnbind(false),
}

func runBindUnbind(bind bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		recordID, err := parseID(args[1])
		if err != nil {
			return err
		}
		fileID, err := parseID(args[2])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			if bind {
				if err := st.Bind(ctx, kind, recordID, fileID); err != nil {
					return err
				}
				fmt.Printf("bound file %d to %s %d\n", fileID, kind, recordID)
				return nil
			}
			if err := st.Unbind(ctx, kind, recordID, fileID); err != nil {
				return err
			}
			fmt.Printf("unbound file %d from %s %d\n", fileID, kind, recordID)
			return nil
		})(cmd, args)
	}
}

var catalogTagCmd = &cobra.Command{
	Use:   "tag <kind> <record-id> <tag-name>",
	Short: "Assign a tag, creating it in the kind's category if new",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		recordID, err := parseID(args[1])
		if err != nil {
			return err
		}
		name := args[2]
		color, _ := cmd.Flags().GetString("color")
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			tag, err := st.GetOrCreateTag(ctx, name, color, kind)
			if err != nil {
				return err
			}
			if err := st.AssignTag(ctx, kind, recordID, tag.ID); err != nil {
				return err
			}
			fmt.Printf("tagged %s %d with %q\n", kind, recordID, tag.Name)
			return nil
		})(cmd, args)
	},
}

var catalogUntagCmd = &cobra.Command{
	Use:   "untag <kind> <record-id> <tag-name>",
	Short: "Remove a tag from a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		recordID, err := parseID(args[1])
		if err != nil {
			return err
		}
		name := args[2]
		return withStore(func(ctx context.Context, st *store.Store, _ types.PipelineConfig) error {
			tags, err := st.ListTags(ctx, kind)
			if err != nil {
				return err
			}
			for _, t := range tags {
				if t.Name == name {
					if err := st.UnassignTag(ctx, kind, recordID, t.ID); err != nil {
						return err
					}
					fmt.Printf("untagged %s %d from %q\n", kind, recordID, name)
					return nil
				}
			}
			return fmt.Errorf("no tag %q in category %s", name, kind)
		})(cmd, args)
	},
}

var catalogRenameCmd = &cobra.Command{
	Use:   "rename <file-id> <new-path>",
	Short: "Move a cataloged file, keeping its identity and links",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		newRel := filepath.ToSlash(args[1])
		return withStore(func(ctx context.Context, st *store.Store, cfg types.PipelineConfig) error {
			f, err := st.FileByID(ctx, fileID)
			if err != nil {
				return err
			}
			root := cfg.Catalog.LibraryDir
			oldFull := filepath.Join(root, filepath.FromSlash(f.Path))
			newFull := filepath.Join(root, filepath.FromSlash(newRel))

			if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
				return err
			}
			if err := os.Rename(oldFull, newFull); err != nil {
				return fmt.Errorf("moving %s: %w", f.Path, err)
			}
			if err := st.SetFilePath(ctx, fileID, newRel); err != nil {
				return err
			}
			fmt.Printf("renamed %s -> %s\n", f.Path, newRel)
			return nil
		})(cmd, args)
	},
}

var catalogMissingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List cataloged files that no longer exist on disk",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, st *store.Store, cfg types.PipelineConfig) error {
		s := scanner.New(st, cfg.Scan, nil)
		missing, err := s.Missing(ctx, cfg.Catalog.LibraryDir)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			fmt.Println("no missing files")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		for _, f := range missing {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", f.ID, f.Kind, f.Status, f.Path)
		}
		return nil
	}),
}

var catalogReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Backfill the full-text index for unindexed paper files",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, st *store.Store, cfg types.PipelineConfig) error {
		result, err := newPipeline(st, cfg).Reindex(ctx, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("reindexed %d of %d files\n", result.Succeeded, result.Processed)
		return nil
	}),
}

var catalogRefreshImpactCmd = &cobra.Command{
	Use:   "refresh-impact",
	Short: "Stamp missing impact factors from the venue cache",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, st *store.Store, cfg types.PipelineConfig) error {
		stamped, err := newPipeline(st, cfg).RefreshImpactFactors(ctx, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("stamped %d papers\n", stamped)
		return nil
	}),
}
