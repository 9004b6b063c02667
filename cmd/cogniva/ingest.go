package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cogniva-docs/internal/app"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.pdf>...",
		Short: "Rebuild the index from local PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if strings.ToLower(filepath.Ext(path)) != ".pdf" {
					return fmt.Errorf("not a PDF file: %s", path)
				}
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			docs := make([]app.UploadedDocument, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				docs = append(docs, app.UploadedDocument{Name: filepath.Base(path), Content: f})
			}

			result, err := a.DocQA.Ingest(cmd.Context(), docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d file(s), %d page(s), %d chunk(s) into %s (build %s)\n",
				result.FileCount, result.PageCount, result.ChunkCount, a.Config.Index.Dir, result.BuildID)
			return nil
		},
	}
}
