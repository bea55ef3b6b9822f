// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

func seedCatalog(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(types.CatalogConfig{LibraryDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	paper := types.Paper{
		Title:   "Attention Is All You Need",
		Authors: "Vaswani, Ashish",
		Year:    2017,
		DOI:     "10.1000/test.42",
	}
	require.NoError(t, st.UpsertPaper(ctx, &paper))

	f := types.ContentFile{
		Kind: types.KindPaper, Path: "papers/attention.pdf", SHA256: "abc", Size: 1,
		ModTime: now, Status: types.StatusSuccess, LastScannedAt: now,
	}
	require.NoError(t, st.UpsertFile(ctx, &f))
	require.NoError(t, st.Bind(ctx, types.KindPaper, paper.ID, f.ID))

	tag, err := st.GetOrCreateTag(ctx, "transformers", "", types.KindPaper)
	require.NoError(t, err)
	require.NoError(t, st.AssignTag(ctx, types.KindPaper, paper.ID, tag.ID))

	patent := types.Patent{Title: "一种数据处理方法", PatentNumber: "ZL202211551727.X"}
	require.NoError(t, st.InsertPatent(ctx, &patent))

	return st
}

func TestBuildCollectsTagsAndFiles(t *testing.T) {
	st := seedCatalog(t)
	c, err := New(st).Build(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, c.Papers, 1)
	assert.Equal(t, "Attention Is All You Need", c.Papers[0].Title)
	assert.Equal(t, []string{"transformers"}, c.Papers[0].Tags)
	assert.Equal(t, []string{"papers/attention.pdf"}, c.Papers[0].Files)

	require.Len(t, c.Patents, 1)
	assert.Equal(t, "ZL202211551727.X", c.Patents[0].PatentNumber)
	assert.Empty(t, c.Softwares)
}

func TestBuildKindFilter(t *testing.T) {
	st := seedCatalog(t)
	c, err := New(st).Build(context.Background(), types.KindPatent)
	require.NoError(t, err)
	assert.Empty(t, c.Papers)
	require.Len(t, c.Patents, 1)
}

func TestWriteYAMLRoundTrips(t *testing.T) {
	st := seedCatalog(t)
	c, err := New(st).Build(context.Background(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, c))

	var decoded Catalog
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Papers, 1)
	assert.Equal(t, "10.1000/test.42", decoded.Papers[0].DOI)
	assert.Equal(t, []string{"transformers"}, decoded.Papers[0].Tags)
}

func TestWriteJSONInlinesRecordFields(t *testing.T) {
	st := seedCatalog(t)
	c, err := New(st).Build(context.Background(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, c))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	papers := doc["papers"].([]any)
	require.Len(t, papers, 1)
	first := papers[0].(map[string]any)
	assert.Equal(t, "Attention Is All You Need", first["title"])
	assert.NotContains(t, first, "Paper")
}
