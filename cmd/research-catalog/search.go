// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search full text and paper metadata",
	Long: `Search runs the query against the full-text index and against paper
titles, authors, and venues. Full-text hits come with a snippet of the
matching passage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of hits (default 50)")
	searchCmd.Flags().Bool("json", false, "output hits as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	hits, err := st.Search(cmd.Context(), query, limit)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("no matches")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	for _, h := range hits {
		title := h.Title
		if title == "" {
			title = h.Path
		}
		detail := h.Snippet
		if detail == "" {
			detail = h.Authors
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.Origin, title, detail)
	}
	return nil
}
