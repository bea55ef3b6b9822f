// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-catalog/internal/export"
	"github.com/pdiddy/research-catalog/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump catalog records with tags and file paths",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	exportCmd.Flags().String("kind", "", "limit to one record kind")
	exportCmd.Flags().String("out", "", "write to a file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var kind types.Kind
	if k, _ := cmd.Flags().GetString("kind"); k != "" {
		kind = types.Kind(k)
		if !kind.Valid() {
			return fmt.Errorf("unknown kind %q (want paper, patent, or software)", k)
		}
	}

	doc, err := export.New(st).Build(cmd.Context(), kind)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		return export.WriteYAML(w, doc)
	case "json":
		return export.WriteJSON(w, doc)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
