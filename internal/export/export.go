// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export serializes the catalog to YAML or JSON for use outside
// the tool, e.g. CV generation or backup.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

// PaperEntry is a paper record with its tags and linked file paths.
type PaperEntry struct {
	types.Paper `yaml:",inline"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Files       []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// PatentEntry is a patent record with its tags and linked file paths.
type PatentEntry struct {
	types.Patent `yaml:",inline"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Files        []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// SoftwareEntry is a software record with its tags and linked file paths.
type SoftwareEntry struct {
	types.Software `yaml:",inline"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Files          []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// Catalog is the full export document.
type Catalog struct {
	Papers    []PaperEntry    `json:"papers" yaml:"papers"`
	Patents   []PatentEntry   `json:"patents" yaml:"patents"`
	Softwares []SoftwareEntry `json:"softwares" yaml:"softwares"`
}

// Exporter assembles export documents from the store.
type Exporter struct {
	store *store.Store
}

// New builds an Exporter.
func New(st *store.Store) *Exporter {
	return &Exporter{store: st}
}

// Build collects every catalog record with its tags and file paths. The
// kind filter limits the document to one record family; empty means all.
func (e *Exporter) Build(ctx context.Context, kind types.Kind) (Catalog, error) {
	var c Catalog

	if kind == "" || kind == types.KindPaper {
		papers, err := e.store.ListPapers(ctx)
		if err != nil {
			return c, err
		}
		for _, p := range papers {
			tags, files, err := e.annotations(ctx, types.KindPaper, p.ID)
			if err != nil {
				return c, err
			}
			c.Papers = append(c.Papers, PaperEntry{Paper: p, Tags: tags, Files: files})
		}
	}

	if kind == "" || kind == types.KindPatent {
		patents, err := e.store.ListPatents(ctx)
		if err != nil {
			return c, err
		}
		for _, p := range patents {
			tags, files, err := e.annotations(ctx, types.KindPatent, p.ID)
			if err != nil {
				return c, err
			}
			c.Patents = append(c.Patents, PatentEntry{Patent: p, Tags: tags, Files: files})
		}
	}

	if kind == "" || kind == types.KindSoftware {
		softwares, err := e.store.ListSoftwares(ctx)
		if err != nil {
			return c, err
		}
		for _, s := range softwares {
			tags, files, err := e.annotations(ctx, types.KindSoftware, s.ID)
			if err != nil {
				return c, err
			}
			c.Softwares = append(c.Softwares, SoftwareEntry{Software: s, Tags: tags, Files: files})
		}
	}

	return c, nil
}

func (e *Exporter) annotations(ctx context.Context, kind types.Kind, recordID int64) (tags, files []string, err error) {
	recordTags, err := e.store.TagsForRecord(ctx, kind, recordID)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range recordTags {
		tags = append(tags, t.Name)
	}

	recordFiles, err := e.store.FilesForRecord(ctx, kind, recordID)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range recordFiles {
		files = append(files, f.Path)
	}
	return tags, files, nil
}

// WriteYAML writes the document as YAML.
func WriteYAML(w io.Writer, c Catalog) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, c Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(c)
}
